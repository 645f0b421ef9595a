// Package registry maps script-visible foreign declarations to native Go
// functions.
//
// Two tables are built once with a Builder and are read-only afterwards:
//
//   - the method table, keyed by module + class + signature, with a
//     trailing StaticMarker for methods invoked on the class itself
//   - the class table, keyed by module + class, holding the
//     allocate/finalize pair of each foreign class
//
// Signature strings follow the VM's wire format exactly:
//
//	x          getter
//	x=(_)      setter
//	dot(_)     method with one argument
//	norm()     method with no arguments
//	[_]        subscript getter
//	[_]=(_)    subscript setter
//	-          prefix operator
//	+(_)       infix operator
//
// A method lookup miss reports "unbound". A class lookup miss is a fatal
// configuration error.
//
// A built Registry is safe for concurrent use by any number of VMs.
package registry
