package protocol

import "fmt"

// LinkDelimiter terminates every COBS encoded frame on a byte stream.
const LinkDelimiter byte = 0x00

// CobsEncode encodes data so the result contains no 0x00 bytes. The
// trailing delimiter is not appended.
func CobsEncode(data []byte) []byte {
	out := make([]byte, 1, len(data)+len(data)/254+2)
	codeIdx := 0
	code := byte(1)
	for _, b := range data {
		if b == 0 {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
			continue
		}
		out = append(out, b)
		code++
		if code == 0xFF {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
		}
	}
	out[codeIdx] = code
	return out
}

// CobsDecode decodes a COBS frame without the trailing 0x00 delimiter.
func CobsDecode(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, nil
	}

	out := make([]byte, 0, len(frame))
	for i := 0; i < len(frame); {
		code := frame[i]
		if code == 0 {
			return nil, fmt.Errorf("%w: COBS code 0x00 at %d", ErrLinkFrame, i)
		}
		i++

		count := int(code) - 1
		if i+count > len(frame) {
			return nil, fmt.Errorf("%w: COBS block truncated", ErrLinkFrame)
		}

		out = append(out, frame[i:i+count]...)
		i += count

		if code != 0xFF && i < len(frame) {
			out = append(out, 0x00)
		}
	}

	return out, nil
}

// AppendLinkFrame appends f as it travels on a stream link: COBS encoded
// and delimited.
func AppendLinkFrame(dst []byte, f Frame) []byte {
	dst = append(dst, CobsEncode(f[:])...)
	return append(dst, LinkDelimiter)
}
