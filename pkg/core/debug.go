package core

// DebugMode is the default for WithDebug. When true, every composition pass
// checks that the scope called as many hooks as on its previous pass and
// panics with errors.KindHookOrder otherwise.
var DebugMode = true

// SetDebugMode sets DebugMode for schedulers created afterwards.
func SetDebugMode(debug bool) {
	DebugMode = debug
}
