// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under the mindkeep home directory.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage with environment fallbacks
//   - PromptStore: user-editable prompt templates with hot reload
package file
