package keys

import (
	"golang.org/x/crypto/sha3"
)

// KMAC256 per NIST SP 800-185, built on the cSHAKE256 primitive. The
// customization string is the per-purpose domain separator; distinct domains
// yield independent pseudorandom functions of the same key.
func kmac256(key, data, customization []byte, outLen int) []byte {
	h := sha3.NewCShake256([]byte("KMAC"), customization)
	h.Write(bytepad(encodeString(key), 136))
	h.Write(data)
	h.Write(rightEncode(uint64(outLen) * 8))
	out := make([]byte, outLen)
	h.Read(out)
	return out
}

func leftEncode(v uint64) []byte {
	var buf [9]byte
	n := 0
	for x := v; ; {
		n++
		x >>= 8
		if x == 0 {
			break
		}
	}
	buf[0] = byte(n)
	for i := n; i > 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf[:n+1]
}

func rightEncode(v uint64) []byte {
	var buf [9]byte
	n := 0
	for x := v; ; {
		n++
		x >>= 8
		if x == 0 {
			break
		}
	}
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	buf[n] = byte(n)
	return buf[:n+1]
}

func encodeString(s []byte) []byte {
	return append(leftEncode(uint64(len(s))*8), s...)
}

func bytepad(x []byte, w int) []byte {
	out := append(leftEncode(uint64(w)), x...)
	if rem := len(out) % w; rem != 0 {
		out = append(out, make([]byte, w-rem)...)
	}
	return out
}
