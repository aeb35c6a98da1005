package frame

// Kind identifies the logical event carried by a Message.
type Kind uint8

const (
	KindSessionOpen Kind = iota
	KindSessionOpenAck
	KindPing
	KindGoAway
	KindChannelOpen
	KindChannelOpenAck
	KindChannelData
	KindChannelWindowAdjust
	KindChannelClose
	KindChannelReset
)

func (k Kind) String() string {
	switch k {
	case KindSessionOpen:
		return "SessionOpen"
	case KindSessionOpenAck:
		return "SessionOpenAck"
	case KindPing:
		return "Ping"
	case KindGoAway:
		return "GoAway"
	case KindChannelOpen:
		return "ChannelOpen"
	case KindChannelOpenAck:
		return "ChannelOpenAck"
	case KindChannelData:
		return "ChannelData"
	case KindChannelWindowAdjust:
		return "ChannelWindowAdjust"
	case KindChannelClose:
		return "ChannelClose"
	case KindChannelReset:
		return "ChannelReset"
	default:
		return "Unknown"
	}
}

// Message is one logical event implied by a frame's type and flags. A
// single frame can produce several messages - for example a Data frame
// with SYN|FIN set and a non-empty payload opens a stream, delivers data,
// and half-closes it in one shot.
type Message struct {
	Kind            Kind
	StreamID        StreamID
	Payload         []byte
	WindowIncrement uint32
	PingValue       uint32
	ErrorCode       ErrorCode
}

// Messages decomposes a single frame into its canonical, ordered list of
// logical messages: SYN, ACK, Data, WindowUpdate, Ping, FIN, RST, GoAway.
// Processing frames through this view rather than switching on raw
// type+flags keeps multi-effect frames (e.g. SYN|FIN|Data) from being
// handled in an implementation-dependent order.
func Messages(f *Frame) []Message {
	switch f.Type {
	case TypePing:
		return pingMessages(f)
	case TypeGoAway:
		return []Message{{Kind: KindGoAway, ErrorCode: ErrorCode(f.Length)}}
	case TypeWindowUpdate:
		return channelMessages(f, false)
	case TypeData:
		return channelMessages(f, true)
	default:
		return nil
	}
}

func pingMessages(f *Frame) []Message {
	switch {
	case f.Flags.Has(FlagSYN):
		return []Message{{Kind: KindSessionOpen}}
	case f.Flags.Has(FlagACK):
		return []Message{{Kind: KindSessionOpenAck, PingValue: f.Length}}
	default:
		return []Message{{Kind: KindPing, PingValue: f.Length}}
	}
}

func channelMessages(f *Frame, isData bool) []Message {
	var msgs []Message
	if f.Flags.Has(FlagSYN) {
		msgs = append(msgs, Message{Kind: KindChannelOpen, StreamID: f.StreamID})
	}
	if f.Flags.Has(FlagACK) {
		msgs = append(msgs, Message{Kind: KindChannelOpenAck, StreamID: f.StreamID})
	}
	if isData {
		if len(f.Payload) > 0 {
			msgs = append(msgs, Message{Kind: KindChannelData, StreamID: f.StreamID, Payload: f.Payload})
		}
	} else {
		msgs = append(msgs, Message{Kind: KindChannelWindowAdjust, StreamID: f.StreamID, WindowIncrement: f.Length})
	}
	if f.Flags.Has(FlagFIN) {
		msgs = append(msgs, Message{Kind: KindChannelClose, StreamID: f.StreamID})
	}
	if f.Flags.Has(FlagRST) {
		msgs = append(msgs, Message{Kind: KindChannelReset, StreamID: f.StreamID})
	}
	return msgs
}
