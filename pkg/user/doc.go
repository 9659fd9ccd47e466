// Package user wraps the FairOS-dfs account endpoints: signup, login,
// import, logout, export and deletion.
//
// A successful Signup, Login or Import stores the session cookie returned by
// the server under the username. Every other package authenticates by
// passing the same username, so a single login serves the pod, fs, kv and
// docs clients as long as they share the underlying httpx client.
package user
