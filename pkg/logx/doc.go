// Package logx configures chimed's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured, one file per day in the log directory
//   - Old file cleanup bounded by logging.max_files
package logx
