package client

import (
	"context"
	"testing"

	"ev3-dog/codec"
	"ev3-dog/server"
	"ev3-dog/transport"
)

// 场景1: 单 goroutine 串行调用，每个 codec 一次
func BenchmarkSerialCall(b *testing.B) {
	for _, ct := range []codec.CodecType{codec.CodecTypeJSON, codec.CodecTypeBinary, codec.CodecTypeProto} {
		b.Run(ct.String(), func(b *testing.B) {
			svr := server.NewServer(server.NopRoot{}, server.WithLogger(quiet))
			if err := svr.Register("legs", legs{}); err != nil {
				b.Fatal(err)
			}
			c := NewClient(pipeDial(svr, nil), WithLogger(quiet), WithLinkOptions(transport.WithCodec(ct)))
			if err := c.Connect(context.Background()); err != nil {
				b.Fatal(err)
			}
			b.Cleanup(func() { c.Disconnect() })
			standUp := c.Attr("legs").Attr("StandUp")

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := standUp.Call(50.0); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// 场景2: 多 goroutine 共享一个 client，调用被串行化
func BenchmarkContendedCall(b *testing.B) {
	svr := server.NewServer(server.NopRoot{}, server.WithLogger(quiet))
	c := NewClient(pipeDial(svr, nil), WithLogger(quiet))
	if err := c.Connect(context.Background()); err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { c.Disconnect() })

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if err := c.Ping(context.Background()); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
