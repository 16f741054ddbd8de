package params

const (
	SecParam = 256
	SecBytes = SecParam / 8

	// ScalarBytes is the size of a big-endian encoded scalar on the wire.
	ScalarBytes = SecBytes // = 32
	// PointBytes is the size of a compressed secp256k1 point on the wire.
	PointBytes = 1 + SecBytes // = 33

	// OTChoices is the number of messages a single OT instance offers.
	OTChoices = 1 << 8 // = 256
	// OTPlaintextBytes is the size of a single OT message.
	OTPlaintextBytes = ScalarBytes // = 32
	// OTCiphertextBlockBytes is the size of the batch the OT sender writes in its last message.
	OTCiphertextBlockBytes = OTChoices * OTPlaintextBytes // = 8192

	// MulDigits is the number of OT instances per multiplication, one per byte of the receiver's scalar.
	MulDigits = ScalarBytes // = 32

	// OracleAttempts bounds the hash-to-curve search.
	OracleAttempts = 256

	// PipelineDepth is the capacity of the channel between row construction and the OT sender.
	PipelineDepth = 8
)
