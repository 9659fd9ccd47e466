// Package fairos_sdk bootstraps the FairOS-dfs API clients from a Config.
//
// A Config comes from DefaultConfig, an HCL file (LoadConfigFile) or
// FAIROS_* environment variables (ConfigFromEnv). New resolves the runtime
// mode and returns an SDK whose group clients share one transport and one
// session store:
//
//   - "http" talks to the server at BaseURL.
//   - "mock" serves every request from an in-process sandbox, optionally
//     seeded from SeedFile.
//   - "auto" picks "http" when BaseURL is set and "mock" otherwise.
package fairos_sdk
