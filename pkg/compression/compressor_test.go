package compression

import (
	"bytes"
	"fmt"
	"testing"
)

var allAlgorithms = []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2, Deflate}

func stripeLikeData(size int) []byte {
	var buf bytes.Buffer
	for i := 0; buf.Len() < size; i++ {
		fmt.Fprintf(&buf, "JSNC%c%d.[].review_comments%d", byte(i%7), i%13, i%100)
	}
	return buf.Bytes()[:size]
}

func TestCompressorRoundTrip(t *testing.T) {
	original := stripeLikeData(64 * 1024)

	for _, alg := range allAlgorithms {
		t.Run(string(alg), func(t *testing.T) {
			compressor, err := NewCompressor(&Config{Algorithm: alg, Level: Default})
			if err != nil {
				t.Fatalf("Failed to create %s compressor: %v", alg, err)
			}
			if compressor.Algorithm() != alg {
				t.Errorf("Algorithm() = %s, want %s", compressor.Algorithm(), alg)
			}

			compressed, err := compressor.Compress(original)
			if err != nil {
				t.Fatalf("Failed to compress: %v", err)
			}

			decompressed, err := compressor.Decompress(compressed)
			if err != nil {
				t.Fatalf("Failed to decompress: %v", err)
			}

			if !bytes.Equal(original, decompressed) {
				t.Errorf("Decompressed data doesn't match original")
			}

			if alg != None && len(compressed) >= len(original) {
				t.Errorf("Compressed size (%d) is not smaller than original (%d)",
					len(compressed), len(original))
			}

			t.Logf("%s: Original: %d bytes, Compressed: %d bytes, Ratio: %.2f%%",
				alg, len(original), len(compressed),
				float64(len(compressed))/float64(len(original))*100)
		})
	}
}

func TestCompressionLevels(t *testing.T) {
	levels := []Level{Fastest, Default, Better, Best}
	testData := bytes.Repeat([]byte("test data for compression "), 100)

	for _, alg := range []Algorithm{LZ4, Zstd, S2, Gzip} {
		for _, level := range levels {
			t.Run(string(alg)+"/"+level.String(), func(t *testing.T) {
				compressor, err := NewCompressor(&Config{Algorithm: alg, Level: level})
				if err != nil {
					t.Fatalf("Failed to create compressor: %v", err)
				}

				compressed, err := compressor.Compress(testData)
				if err != nil {
					t.Fatalf("Failed to compress: %v", err)
				}

				decompressed, err := compressor.Decompress(compressed)
				if err != nil {
					t.Fatalf("Failed to decompress: %v", err)
				}

				if !bytes.Equal(testData, decompressed) {
					t.Errorf("Decompressed data doesn't match original for level %v", level)
				}
			})
		}
	}
}

func TestEmptyInput(t *testing.T) {
	for _, alg := range []Algorithm{None, Gzip, Snappy, S2, Deflate} {
		compressor, err := NewCompressor(&Config{Algorithm: alg, Level: Default})
		if err != nil {
			t.Fatalf("Failed to create %s compressor: %v", alg, err)
		}
		compressed, err := compressor.Compress(nil)
		if err != nil {
			t.Fatalf("%s: failed to compress empty input: %v", alg, err)
		}
		decompressed, err := compressor.Decompress(compressed)
		if err != nil {
			t.Fatalf("%s: failed to decompress empty input: %v", alg, err)
		}
		if len(decompressed) != 0 {
			t.Errorf("%s: expected empty output, got %d bytes", alg, len(decompressed))
		}
	}
}

func TestDecompressGarbage(t *testing.T) {
	garbage := []byte("definitely not a compressed frame")
	for _, alg := range []Algorithm{Gzip, Snappy, LZ4, Zstd, S2} {
		compressor, err := NewCompressor(&Config{Algorithm: alg, Level: Default})
		if err != nil {
			t.Fatalf("Failed to create %s compressor: %v", alg, err)
		}
		if _, err := compressor.Decompress(garbage); err == nil {
			t.Errorf("%s: expected an error decompressing garbage", alg)
		}
	}
}

func TestAlgorithmCodes(t *testing.T) {
	for i, alg := range allAlgorithms {
		code, err := alg.Code()
		if err != nil {
			t.Fatalf("Code(%s): %v", alg, err)
		}
		if int(code) != i {
			t.Errorf("Code(%s) = %d, want %d", alg, code, i)
		}
		back, err := AlgorithmFromCode(code)
		if err != nil || back != alg {
			t.Errorf("AlgorithmFromCode(%d) = %s, %v", code, back, err)
		}
	}

	if _, err := AlgorithmFromCode(byte(len(allAlgorithms))); err == nil {
		t.Error("expected an error for an unknown code")
	}
	if _, err := Algorithm("brotli").Code(); err == nil {
		t.Error("expected an error for an unknown algorithm")
	}
}

func TestParse(t *testing.T) {
	if alg, err := ParseAlgorithm("ZSTD"); err != nil || alg != Zstd {
		t.Errorf("ParseAlgorithm(ZSTD) = %s, %v", alg, err)
	}
	if alg, err := ParseAlgorithm(""); err != nil || alg != None {
		t.Errorf("ParseAlgorithm(\"\") = %s, %v", alg, err)
	}
	if _, err := ParseAlgorithm("rar"); err == nil {
		t.Error("expected an error for rar")
	}

	if level, err := ParseLevel("best"); err != nil || level != Best {
		t.Errorf("ParseLevel(best) = %v, %v", level, err)
	}
	if level, err := ParseLevel(""); err != nil || level != Default {
		t.Errorf("ParseLevel(\"\") = %v, %v", level, err)
	}
	if _, err := ParseLevel("extreme"); err == nil {
		t.Error("expected an error for extreme")
	}
}

func BenchmarkCompression(b *testing.B) {
	data := stripeLikeData(1024 * 1024)
	for _, alg := range allAlgorithms {
		b.Run(string(alg), func(b *testing.B) {
			compressor, err := NewCompressor(&Config{Algorithm: alg, Level: Default})
			if err != nil {
				b.Fatal(err)
			}
			b.SetBytes(int64(len(data)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := compressor.Compress(data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
