// Package audio is the playback side of chimed: it preloads and fully
// decodes sound assets into memory, applies the global volume, and plays
// them through an Output port with the configured retry policy.
//
// Failure taxonomy:
//   - ErrAsset: the file is missing or does not decode. Never retried.
//   - ErrDevice: the output device failed. Retried per policy.
//
// Concurrent playbacks are mixed by the output; the player itself does no
// serialization (per-schedule exclusivity is the dispatch engine's job).
package audio
