// Package client provides the geyserd command-line client.
//
// The commands talk to the geyserd gRPC endpoint. The address defaults to
// GEYSER_GRPC (or 127.0.0.1:10000) and an x-token may be passed with
// --x-token or GEYSER_X_TOKEN.
//
// Usage
//
//	geyserd subscribe --accounts <pubkey> --commitment confirmed
//	geyserd subscribe --owner TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA --data-slice 0:32
//	geyserd subscribe --tx-account <pubkey> --vote false --limit 10
//	geyserd subscribe --slots --slots-by-commitment --commitment finalized
//	geyserd subscribe --blocks-meta --from-slot 1200
//
//	geyserd ping --count 3
//	geyserd slot --commitment finalized
//	geyserd blockhash --check <hash>
//	geyserd server-version
//
// Updates are printed as one JSON object per line with base58 keys and
// signatures. Server keepalive pings are not printed.
package client
