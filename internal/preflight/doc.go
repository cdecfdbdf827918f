// Package preflight provides readiness checks for the filesystem paths
// archivist depends on.
//
// These checks run in two contexts:
//   - The daemon logs RunAll results at startup; failures are warnings since
//     missing directories were already rejected by config validation.
//   - The CLI "archivist status" command prints them alongside lock state.
package preflight
