// Package nativebind is the shared runtime for binding Go to native C
// libraries without cgo.
//
// Key pieces include:
//   - Library resolution: platform file naming, search paths and a
//     process-wide handle cache (Open, Resolve, Candidates, Catalog)
//   - Symbol binding: declared call signatures checked against Go func
//     types and registered through purego (Bind, BindAll, Sig)
//   - Stream adaptation: Go io.ReadSeekCloser values exposed as native
//     RWops records (AdaptStream), and native records read from Go
//   - Buffer views: indexed, lock-scoped access to native pixel and sample
//     buffers (NewView, WithView)
//
// # Architecture
//
//	Candidates -> FindCandidates -> Open -> *Library -> BindAll -> func vars
//	io.ReadSeekCloser -> AdaptStream -> *RWops -> native consumer
//	BufferSource (+Locker) -> NewView -> Get/Set -> Close
//
// # Native Libraries
//
// Set NATIVEBIND_LIB_PATH, or call SetSearchDir, to search a directory
// before the system locations. Loaded libraries stay loaded for the life
// of the process.
//
// The sdl, sdlimage and sdlttf subpackages are thin SDL2 wrappers built on
// this package. Each has an Available function reporting whether its
// library loaded.
//
// # Logging
//
// Failed load attempts and recovered callback panics are reported through
// a pion/logging LeveledLogger scoped "nativebind". Levels follow the
// PION_LOG_* environment variables; SetLogger replaces the logger.
package nativebind
