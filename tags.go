package dewberry

// Wire tag assignment.
//
// Every encoded value starts with a one-byte tag. Small values are folded
// into the tag itself (fixint, fixstr, fixarray, fixmap); everything else
// carries an explicit width tag followed by a big-endian payload.
//
// Tag space:
//   0x00-0x7F  positive fixint (value in tag)
//   0x80-0x8F  fixmap   (pair count in low nibble)
//   0x90-0x9F  fixarray (element count in low nibble)
//   0xA0-0xBF  fixstr   (byte length in low 5 bits)
//   0xC0       nil
//   0xC1       never used
//   0xC2-0xC3  false, true
//   0xC4-0xC9  uint8, uint16, uint32, uint64, uint128, uint256
//   0xCA-0xCF  int8, int16, int32, int64, int128, int256
//   0xD0-0xD1  bin8, bin16
//   0xD2-0xD3  str8, str16
//   0xD4       address (20-byte payload)
//   0xD5       fixedblock32 (32-byte payload)
//   0xD6-0xD7  array8, array16
//   0xD8-0xD9  map8, map16
//   0xDA-0xDF  never used
//   0xE0-0xFF  negative fixint -32..-1 (two's complement in tag)

const (
	// posFixintMax is the largest value a positive fixint tag can hold.
	posFixintMax = 0x7F

	// fixmapBase carries a pair count 0-15 in its low nibble.
	fixmapBase = 0x80

	// fixarrayBase carries an element count 0-15 in its low nibble.
	fixarrayBase = 0x90

	// fixstrBase carries a byte length 0-31 in its low 5 bits.
	fixstrBase = 0xA0

	// negFixintMin is the lowest tag of the negative fixint range.
	negFixintMin = 0xE0
)

const (
	tagNil   = 0xC0
	tagFalse = 0xC2
	tagTrue  = 0xC3

	tagUint8   = 0xC4
	tagUint16  = 0xC5
	tagUint32  = 0xC6
	tagUint64  = 0xC7
	tagUint128 = 0xC8
	tagUint256 = 0xC9

	tagInt8   = 0xCA
	tagInt16  = 0xCB
	tagInt32  = 0xCC
	tagInt64  = 0xCD
	tagInt128 = 0xCE
	tagInt256 = 0xCF

	tagBin8  = 0xD0
	tagBin16 = 0xD1
	tagStr8  = 0xD2
	tagStr16 = 0xD3

	tagAddress = 0xD4
	tagBlock32 = 0xD5

	tagArray8  = 0xD6
	tagArray16 = 0xD7
	tagMap8    = 0xD8
	tagMap16   = 0xD9
)

const (
	// fixCountMax is the largest count a fixarray or fixmap tag can hold.
	fixCountMax = 0x0F

	// fixstrMaxLen is the largest byte length a fixstr tag can hold.
	fixstrMaxLen = 0x1F
)

// MaxLen is the largest byte length of a string or binary payload and the
// largest element count of an array or pair count of a map. Anything longer
// fails with ErrOverflow.
const MaxLen = 0xFFFF

// AddressLen is the payload size of an encoded address.
const AddressLen = 20

// HashLen is the payload size of an encoded fixed block.
const HashLen = 32

// tagKind classifies a tag byte into the Kind of value it introduces.
// Tags outside the defined table classify as KindInvalid.
func tagKind(tag byte) Kind {
	switch {
	case tag <= posFixintMax:
		return KindUint
	case tag >= negFixintMin:
		return KindInt
	case tag >= fixmapBase && tag <= fixmapBase|fixCountMax:
		return KindMap
	case tag >= fixarrayBase && tag <= fixarrayBase|fixCountMax:
		return KindArray
	case tag >= fixstrBase && tag <= fixstrBase|fixstrMaxLen:
		return KindString
	}
	switch tag {
	case tagNil:
		return KindNil
	case tagFalse, tagTrue:
		return KindBool
	case tagUint8, tagUint16, tagUint32, tagUint64, tagUint128, tagUint256:
		return KindUint
	case tagInt8, tagInt16, tagInt32, tagInt64, tagInt128, tagInt256:
		return KindInt
	case tagBin8, tagBin16:
		return KindBytes
	case tagStr8, tagStr16:
		return KindString
	case tagAddress:
		return KindAddress
	case tagBlock32:
		return KindHash
	case tagArray8, tagArray16:
		return KindArray
	case tagMap8, tagMap16:
		return KindMap
	}
	return KindInvalid
}
