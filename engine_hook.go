package kestrel

// EngineHook is the interface for engine instrumentation. The engine calls it
// synchronously from the operation that caused the event.
//
// For convenience, embed BaseEngineHook to get no-op implementations
// of all methods, then override only the ones you need.
type EngineHook interface {
	// OnShapeTransition is called whenever an object moves to another shape.
	// created is true if the transition edge did not exist before.
	OnShapeTransition(from, to *Shape, created bool)

	// OnArrayPromote is called when an array switches from dense to sparse
	// storage. index is the write that triggered the switch.
	OnArrayPromote(length, index uint32)

	// OnPropertyError is called for every failed operation, whether or not it
	// is signalled.
	OnPropertyError(err *PropertyError, thrown bool)
}

// BaseEngineHook provides no-op implementations of all EngineHook methods.
type BaseEngineHook struct{}

func (BaseEngineHook) OnShapeTransition(from, to *Shape, created bool) {}

func (BaseEngineHook) OnArrayPromote(length, index uint32) {}

func (BaseEngineHook) OnPropertyError(err *PropertyError, thrown bool) {}
