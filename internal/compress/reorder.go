package compress

// The RLE and ZIP codecs share a preprocessing transform: bytes are
// split into two planes (even positions first, then odd positions) and
// delta-encoded, which turns the slowly varying high bytes of pixel
// values into long runs of small numbers.

// preprocess returns a split, delta-encoded copy of src.
func preprocess(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	out := make([]byte, len(src))

	// Split into two halves: even input positions fill the first
	// half, odd positions the second.
	half := (len(src) + 1) / 2
	j, k := 0, half
	for i := 0; i < len(src); {
		out[j] = src[i]
		j++
		i++
		if i < len(src) {
			out[k] = src[i]
			k++
			i++
		}
	}

	// Delta-encode in place.
	p := int(out[0])
	for i := 1; i < len(out); i++ {
		d := int(out[i]) - p + (128 + 256)
		p = int(out[i])
		out[i] = byte(d)
	}
	return out
}

// postprocess reverses preprocess.
func postprocess(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	tmp := make([]byte, len(src))
	copy(tmp, src)

	for i := 1; i < len(tmp); i++ {
		tmp[i] = byte(int(tmp[i-1]) + int(tmp[i]) - 128)
	}

	out := make([]byte, len(tmp))
	half := (len(tmp) + 1) / 2
	j, k := 0, half
	for i := 0; i < len(out); {
		out[i] = tmp[j]
		j++
		i++
		if i < len(out) {
			out[i] = tmp[k]
			k++
			i++
		}
	}
	return out
}
