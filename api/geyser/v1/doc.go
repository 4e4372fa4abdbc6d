// Package geyserv1 defines the geyser.v1.Geyser gRPC service: wire types, a
// msgpack codec and the hand-written service descriptor, client and server
// plumbing.
//
// Messages are plain Go structs with msgpack tags. Clients select the codec
// with the content subtype, which NewGeyserClient does on every call:
//
//	conn, _ := grpc.NewClient("127.0.0.1:10000", grpc.WithTransportCredentials(insecure.NewCredentials()))
//	c := geyserv1.NewGeyserClient(conn)
//	stream, _ := c.Subscribe(ctx)
//	_ = stream.Send(&geyserv1.SubscribeRequest{Slots: map[string]*geyserv1.SlotsFilter{"s": {}}})
package geyserv1
