// Package kv wraps the key-value store endpoints of FairOS-dfs.
//
// Values are JSON encoded by Put and decoded by Get, so any value that
// round-trips through encoding/json can be stored. Range scans use Seek,
// which returns an Iterator driven by the server-side cursor:
//
//	it, err := client.Seek(ctx, "alice", "photos", "albums", "2023", "2024", 0)
//	if err != nil {
//		return err
//	}
//	for it.Next(ctx) {
//		fmt.Println(it.Key(), it.Value())
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
package kv
