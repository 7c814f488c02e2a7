package light

const (
	bitOne  = 0b11111000
	bitZero = 0b11000000

	// BytesPerPixel is the SPI payload per LED: three colours, one byte per bit.
	BytesPerPixel = 24
)

// Encode converts a frame to the SPI byte stream for WS2812 LEDs. Each colour
// bit becomes one SPI byte whose high time encodes the bit; colours are sent
// in GRB order after scaling by Brightness/255.
func Encode(f Frame) []byte {
	k := float64(f.Brightness) / 255
	out := make([]byte, 0, len(f.Pixels)*BytesPerPixel)
	for _, p := range f.Pixels {
		for _, c := range [3]uint8{p.G, p.R, p.B} {
			v := uint8(float64(c) * k)
			for i := 7; i >= 0; i-- {
				if v&(1<<i) != 0 {
					out = append(out, bitOne)
				} else {
					out = append(out, bitZero)
				}
			}
		}
	}
	return out
}
