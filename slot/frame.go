package slot

import (
	"context"
	"fmt"

	"github.com/wippyai/wren-bridge/errors"
	"github.com/wippyai/wren-bridge/value"
)

// Frame is the slot array of one native call.
type Frame struct {
	host  Host
	slots []value.Value
}

// NewFrame creates a frame with n null slots.
func NewFrame(host Host, n int) *Frame {
	return &Frame{
		host:  host,
		slots: make([]value.Value, n),
	}
}

// Count returns the number of slots available.
func (f *Frame) Count() int {
	return len(f.slots)
}

// Ensure grows the frame to at least n slots. Existing slots are kept.
func (f *Frame) Ensure(n int) {
	for len(f.slots) < n {
		f.slots = append(f.slots, value.Null)
	}
}

// Values exposes the raw slot array to the VM that owns the frame.
func (f *Frame) Values() []value.Value {
	return f.slots
}

// Context returns the context of the operation driving the VM.
func (f *Frame) Context() context.Context {
	if f.host == nil {
		return context.Background()
	}
	return f.host.Context()
}

func (f *Frame) check(i int) error {
	if i < 0 || i >= len(f.slots) {
		return errors.OutOfBounds(errors.PhaseSlot, i, len(f.slots))
	}
	return nil
}

func (f *Frame) want(i int, kind value.Kind) (value.Value, error) {
	if err := f.check(i); err != nil {
		return value.Null, err
	}
	v := f.slots[i]
	if v.Kind() != kind {
		return value.Null, errors.TypeMismatch(i, v.Kind().String(), kind.String())
	}
	return v, nil
}

func (f *Frame) needHost() error {
	if f.host == nil {
		return errors.NotInitialized(errors.PhaseSlot, "frame host")
	}
	return nil
}

// Type returns the logical type of slot i.
func (f *Frame) Type(i int) (value.Kind, error) {
	if err := f.check(i); err != nil {
		return value.KindNull, err
	}
	return f.slots[i].Kind(), nil
}

// Get returns slot i as a raw value.
func (f *Frame) Get(i int) (value.Value, error) {
	if err := f.check(i); err != nil {
		return value.Null, err
	}
	return f.slots[i], nil
}

// Set stores a raw value in slot i.
func (f *Frame) Set(i int, v value.Value) error {
	if err := f.check(i); err != nil {
		return err
	}
	f.slots[i] = v
	return nil
}

// GetDouble reads a number.
func (f *Frame) GetDouble(i int) (float64, error) {
	v, err := f.want(i, value.KindNum)
	if err != nil {
		return 0, err
	}
	return v.AsNum(), nil
}

// SetDouble stores a number.
func (f *Frame) SetDouble(i int, n float64) error {
	return f.Set(i, value.Num(n))
}

// GetBool reads a boolean.
func (f *Frame) GetBool(i int) (bool, error) {
	v, err := f.want(i, value.KindBool)
	if err != nil {
		return false, err
	}
	return v.AsBool(), nil
}

// SetBool stores a boolean.
func (f *Frame) SetBool(i int, b bool) error {
	return f.Set(i, value.Bool(b))
}

// GetString reads a string.
func (f *Frame) GetString(i int) (string, error) {
	v, err := f.want(i, value.KindString)
	if err != nil {
		return "", err
	}
	return v.AsString(), nil
}

// SetString stores a copy of s.
func (f *Frame) SetString(i int, s string) error {
	return f.Set(i, value.String(s))
}

// GetBytes reads a string as raw bytes. The returned slice is a copy.
func (f *Frame) GetBytes(i int) ([]byte, error) {
	s, err := f.GetString(i)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// SetBytes stores raw bytes as a string.
func (f *Frame) SetBytes(i int, b []byte) error {
	return f.Set(i, value.String(string(b)))
}

// SetNull stores null.
func (f *Frame) SetNull(i int) error {
	return f.Set(i, value.Null)
}

// GetForeign returns the Go value behind the foreign object in slot i. The
// object must still be live.
func (f *Frame) GetForeign(i int) (any, error) {
	v, err := f.want(i, value.KindForeign)
	if err != nil {
		return nil, err
	}
	if err := f.needHost(); err != nil {
		return nil, err
	}
	obj := v.AsForeign()
	val, ok := f.host.Store().Get(obj.Handle)
	if !ok {
		return nil, errors.StaleHandle(obj.Handle)
	}
	return val, nil
}

// Foreign returns the foreign value in slot i as a T. A slot holding
// anything else, including a foreign object of another Go type, is a type
// mismatch.
func Foreign[T any](f *Frame, i int) (T, error) {
	var zero T
	raw, err := f.GetForeign(i)
	if err != nil {
		return zero, err
	}
	v, ok := raw.(T)
	if !ok {
		return zero, errors.TypeMismatch(i, fmt.Sprintf("%T", raw), fmt.Sprintf("%T", zero))
	}
	return v, nil
}

// ForeignClass returns the class of the foreign object in slot i.
func (f *Frame) ForeignClass(i int) (value.ClassRef, error) {
	v, err := f.want(i, value.KindForeign)
	if err != nil {
		return nil, err
	}
	return v.AsForeign().Class, nil
}

// SetNewForeign creates an instance of the foreign class held in classSlot,
// backed by v, and stores it in destSlot. v must be fully initialized: the
// instance is visible to script code as soon as the native returns.
func (f *Frame) SetNewForeign(classSlot, destSlot int, v any) error {
	cv, err := f.want(classSlot, value.KindClass)
	if err != nil {
		return err
	}
	if err := f.check(destSlot); err != nil {
		return err
	}
	cls := cv.AsClass()
	if cls == nil || !cls.IsForeign() {
		name := "<nil>"
		if cls != nil {
			name = cls.Name()
		}
		return errors.TypeMismatch(classSlot, "class "+name, "foreign class")
	}
	if err := f.needHost(); err != nil {
		return err
	}

	obj, err := f.host.NewForeign(cls, v)
	if err != nil {
		return err
	}
	f.slots[destSlot] = obj
	return nil
}

// GetVariable stores the module-level variable name from module in slot i.
// This is how natives reach classes, for example to allocate a result
// instance with SetNewForeign.
func (f *Frame) GetVariable(module, name string, i int) error {
	if err := f.check(i); err != nil {
		return err
	}
	if err := f.needHost(); err != nil {
		return err
	}
	v, err := f.host.Variable(module, name)
	if err != nil {
		return err
	}
	f.slots[i] = v
	return nil
}

// SetNewList stores a new empty list in slot i.
func (f *Frame) SetNewList(i int) error {
	return f.Set(i, value.NewList())
}

// ListCount returns the length of the list in slot i.
func (f *Frame) ListCount(i int) (int, error) {
	v, err := f.want(i, value.KindList)
	if err != nil {
		return 0, err
	}
	return len(v.AsList().Elems), nil
}

// ListElement copies element index of the list in listSlot into
// elementSlot. Negative indices count from the end.
func (f *Frame) ListElement(listSlot, index, elementSlot int) error {
	v, err := f.want(listSlot, value.KindList)
	if err != nil {
		return err
	}
	if err := f.check(elementSlot); err != nil {
		return err
	}
	elems := v.AsList().Elems
	if index < 0 {
		index += len(elems)
	}
	if index < 0 || index >= len(elems) {
		return errors.OutOfBounds(errors.PhaseSlot, index, len(elems))
	}
	f.slots[elementSlot] = elems[index]
	return nil
}

// InsertInList inserts the value in elementSlot into the list in listSlot
// before index. -1 appends; other negative indices count from the end.
func (f *Frame) InsertInList(listSlot, index, elementSlot int) error {
	v, err := f.want(listSlot, value.KindList)
	if err != nil {
		return err
	}
	if err := f.check(elementSlot); err != nil {
		return err
	}
	l := v.AsList()
	if index < 0 {
		index += len(l.Elems) + 1
	}
	if index < 0 || index > len(l.Elems) {
		return errors.OutOfBounds(errors.PhaseSlot, index, len(l.Elems))
	}
	l.Elems = append(l.Elems, value.Null)
	copy(l.Elems[index+1:], l.Elems[index:])
	l.Elems[index] = f.slots[elementSlot]
	return nil
}
