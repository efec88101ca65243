package core

import "strconv"

// utoa converts an unsigned integer to a string
func utoa(n uint32) string {
	return string(strconv.AppendUint(nil, uint64(n), 10))
}

// appendFixed formats v with prec decimals, like %.Nf.
func appendFixed(dst []byte, v float64, prec int) []byte {
	return strconv.AppendFloat(dst, v, 'f', prec, 64)
}

// appendField starts another key=value pair of a line.
func appendField(dst []byte, key string) []byte {
	dst = append(dst, ',')
	dst = append(dst, key...)
	return append(dst, '=')
}

// parseUint32 accepts a plain decimal number.
func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, ErrMalformedValue
	}
	return uint32(v), nil
}

func appendUint(dst []byte, v uint32) []byte {
	return strconv.AppendUint(dst, uint64(v), 10)
}
