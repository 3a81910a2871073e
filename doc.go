// Package graft hooks native functions inside the running process.
//
// A hook overwrites the first instructions of a target function with a jump
// to a replacement. The overwritten prologue is relocated into a small
// executable trampoline so the original behavior stays callable through
// [Hook.Original]. Hooks are installed and removed at runtime and every
// failure path leaves the target byte-identical to its pre-call state.
//
// Beyond function hooks the package can resolve symbols in loaded images,
// redirect an image's import-table (GOT/IAT) slots, and patch raw bytes at
// an address with page-protection handling.
//
// Limitations:
//   - Only amd64 and arm64 are supported.
//   - Targets shorter than the redirect jump cannot be hooked. Tiny leaf
//     functions, a bare add or a constant return, fail with a
//     short-prologue error.
//   - Instruction fetch is assumed to observe the redirect atomically;
//     no threads are suspended while patching.
package graft
