// Package slot is the only channel for values crossing the host/script
// boundary.
//
// Every native call gets a Frame: an ordered array of dynamically typed
// slots. Slot 0 holds the receiver on entry and the return value on exit;
// slots 1..N hold the arguments. Natives read and write slots through typed
// accessors that check the index and the logical type and return a
// structured error instead of reinterpreting a value:
//
//	func vec3Dot(f *slot.Frame) error {
//		lhs, err := slot.Foreign[*Vec3](f, 0)
//		if err != nil {
//			return err
//		}
//		rhs, err := slot.Foreign[*Vec3](f, 1)
//		if err != nil {
//			return err
//		}
//		return f.SetDouble(0, lhs.Dot(rhs))
//	}
//
// A Frame is valid only for the native call it was created for. Values
// obtained from it, foreign values included, must not be kept after the call
// returns: the VM may finalize a foreign object as soon as nothing in the
// script references it.
package slot
