// Package foreign implements the store for native-backed script objects.
//
// A foreign object is a Go value embedded in a script-managed instance. The
// VM owns when the object dies; the binding owns what the value means. The
// Store bridges the two: the VM holds only a Handle, and every access goes
// through a liveness check.
//
// # Handles
//
// A Handle packs an arena index with the generation of the entry it was
// issued for. Finalizing an object bumps the generation, so a handle kept
// past finalization resolves to nothing instead of to whatever object
// reuses the slot:
//
//	store := foreign.NewStore()
//	vec3 := &foreign.Class{ID: 1, Name: "vector.Vec3"}
//
//	h, _ := store.Insert(vec3, &Vec3{1, 2, 3})
//	v, ok := store.GetTyped(h, vec3) // ok
//	store.Finalize(h)
//	_, ok = store.Get(h)             // !ok, handle is stale
//
// # Finalization
//
// Finalize runs the class finalizer exactly once per object. The finalizer
// receives the stored value and nothing else, so it cannot reach back into
// the VM while the collector is running. Close finalizes every object still
// alive, which is what the VM does when it is freed.
//
// # Observers
//
// Observers see EventAllocated and EventFinalized for every object; the
// metrics package uses them to track live counts per class.
package foreign
