// Package yamux implements a Yamux-compatible stream multiplexer: many
// independent, flow-controlled byte streams carried over one underlying
// io.ReadWriteCloser, framed per the wire format described in the
// protocol notes (12-byte header, four frame types, SYN/ACK/FIN/RST
// control bits on top of Data and WindowUpdate frames).
//
// A Session is built with Client or Server depending on which side of the
// transport this process is. The client dials and waits for the server's
// handshake Ping; the server sends it as soon as it attaches. Either side
// may then call OpenStream to create outbound streams and AcceptStream to
// receive inbound ones, exactly like a net.Listener accepting net.Conns.
package yamux

// ProtocolID is this package's negotiated protocol identifier, suitable
// for use with a multistream-select style handshake layered underneath.
const ProtocolID = "/yamux/1.0.0"
