// Package client implements the client side of the bronzeKV protocol.
//
// Key Components:
//
//   - IConnection (NewConnection): A single connection offering Set, Get,
//     Delete, Scan, Ping and NoResponse. Requests are strictly sequential, a
//     scan result is streamed lazily from the connection and discarded by the
//     next request if the caller did not finish it.
//
//   - IPool (NewPool): Keeps idle connections for reuse. Connections are
//     checked with HasBroken when taken out of the pool and replaced if the
//     server went away in the meantime.
//
// Error Handling:
//
//	Failure statuses sent by the server and transport failures are returned as
//	*status.Error, use status.Is or status.CodeOf to inspect them. A missing key
//	is not an error, Get reports it with found == false. After an IOError,
//	EngineError or UnknownAction the connection is unusable and every further
//	request fails with ErrConnectionBroken.
//
// Usage Example:
//
//	pool := client.NewPool(common.ClientConfig{
//		Transport: common.TransportConf{Type: common.TransportTCP, Endpoint: "localhost:4000", TimeoutSecond: 5},
//	}, tcp.NewTCPClientTransport())
//	defer pool.Close()
//
//	conn, err := pool.Get()
//	if err != nil {
//		return err
//	}
//	defer pool.Put(conn)
//
//	entries, err := conn.Scan(kv.Inclusive(kv.Key("a")), kv.Unbounded())
//	if err != nil {
//		return err
//	}
//	for entry, err := range entries {
//		if err != nil {
//			return err
//		}
//		fmt.Println(entry)
//	}
package client
