// Package tools provides reusable runtime helpers: currently just a thin
// os/exec wrapper, used by internal/validator/exec to run an external
// validator command from the worker.
package tools
