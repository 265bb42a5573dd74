package compress

import "fmt"

// rleCodec implements the run-length chunk codec. The packed stream is
// a sequence of signed count bytes: a negative count -n is followed by
// n literal bytes, a non-negative count n is followed by one byte to
// be repeated n+1 times.
type rleCodec struct{}

const (
	rleMaxRun = 127
	rleMinRun = 3
)

func (rleCodec) ID() uint8          { return RLE }
func (rleCodec) LinesPerChunk() int { return 1 }

func (rleCodec) Compress(src []byte) ([]byte, error) {
	data := preprocess(src)
	out := make([]byte, 0, len(data))

	for i := 0; i < len(data); {
		// Measure the run starting here.
		run := 1
		for i+run < len(data) && data[i+run] == data[i] && run < rleMaxRun {
			run++
		}
		if run >= rleMinRun {
			out = append(out, byte(run-1), data[i])
			i += run
			continue
		}

		// Literal span: up to the next worthwhile run.
		start := i
		for i < len(data) && i-start < rleMaxRun {
			if i+2 < len(data) && data[i] == data[i+1] && data[i] == data[i+2] {
				break
			}
			i++
		}
		n := i - start
		out = append(out, byte(-n))
		out = append(out, data[start:i]...)
	}
	return out, nil
}

func (rleCodec) Decompress(src []byte, expectedSize int) ([]byte, error) {
	out := make([]byte, 0, expectedSize)
	for i := 0; i < len(src); {
		count := int(int8(src[i]))
		i++
		if count < 0 {
			n := -count
			if i+n > len(src) {
				return nil, fmt.Errorf("rle literal run of %d bytes exceeds input", n)
			}
			out = append(out, src[i:i+n]...)
			i += n
		} else {
			if i >= len(src) {
				return nil, fmt.Errorf("rle repeat run is missing its value byte")
			}
			for j := 0; j <= count; j++ {
				out = append(out, src[i])
			}
			i++
		}
		if len(out) > expectedSize {
			return nil, fmt.Errorf("rle output exceeds expected %d bytes", expectedSize)
		}
	}
	if len(out) != expectedSize {
		return nil, fmt.Errorf("rle output is %d bytes, want %d", len(out), expectedSize)
	}
	return postprocess(out), nil
}
