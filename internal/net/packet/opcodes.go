package packet

// Client → server opcodes.
const (
	C_OPCODE_LOGIN byte = 0x01
	C_OPCODE_CHAT  byte = 0x02
	C_OPCODE_PING  byte = 0x03
	C_OPCODE_QUIT  byte = 0x04
)

// Server → client opcodes.
const (
	S_OPCODE_LOGIN_RESULT   byte = 0x81
	S_OPCODE_CHAT           byte = 0x82
	S_OPCODE_PONG           byte = 0x83
	S_OPCODE_DISCONNECT     byte = 0x84
	S_OPCODE_SERVER_MESSAGE byte = 0x85
)
