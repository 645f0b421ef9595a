package registry

// StaticMarker is appended to the key of a method invoked on the class
// object rather than an instance. The marker is an embedding convention;
// the VM passes the static flag separately.
const StaticMarker = "s"

// MethodKey identifies one foreign method.
type MethodKey struct {
	Module    string
	Class     string
	Signature string
	Static    bool
}

// String returns the lookup key: module, class and signature concatenated,
// followed by StaticMarker for static methods.
func (k MethodKey) String() string {
	s := k.Module + k.Class + k.Signature
	if k.Static {
		s += StaticMarker
	}
	return s
}

// Qualified returns a readable form such as "vector.Vec3.dot(_)" or
// "vector.Vec3 static new(_,_,_)".
func (k MethodKey) Qualified() string {
	sep := "."
	if k.Static {
		sep = " static "
	}
	return k.Module + "." + k.Class + sep + k.Signature
}

// ClassKey identifies one foreign class.
type ClassKey struct {
	Module string
	Class  string
}

// String returns the lookup key: module and class concatenated.
func (k ClassKey) String() string {
	return k.Module + k.Class
}

// Qualified returns a readable form such as "vector.Vec3".
func (k ClassKey) Qualified() string {
	return k.Module + "." + k.Class
}
