package lifecycle

import (
	"context"
	"fmt"

	"testrig/internal/descriptor"
)

// hookOrder lists the fields in declaration order followed by the SUT.
func hookOrder(d *descriptor.TestDescriptor) []descriptor.Slot {
	var slots []descriptor.Slot
	for _, f := range d.Fields() {
		slots = append(slots, f)
	}
	if sut, ok := d.Sut(); ok {
		slots = append(slots, sut)
	}
	return slots
}

func (rc *Context) callHook(ctx context.Context, s descriptor.Slot, name string) error {
	target, ok := rc.hookTarget(s)
	if !ok {
		return nil
	}
	if _, err := descriptor.NewMethodDescriptor(name).Invoke(ctx, target); err != nil {
		return fmt.Errorf("hook of %s: %w", s.Name(), err)
	}
	return nil
}
