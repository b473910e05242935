package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestBOMReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "export with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("hubtel,Ghana")...),
			expected: "hubtel,Ghana",
		},
		{
			name:     "export without BOM",
			input:    []byte("hubtel,Ghana"),
			expected: "hubtel,Ghana",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM at start",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: string([]byte{0xEF, 0xBB, 'a', 'b', 'c'}),
		},
		{
			name:     "shorter than a BOM",
			input:    []byte("a"),
			expected: "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(&bomReader{r: bytes.NewReader(tt.input)})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		oneByte  bool
		expected string
	}{
		{
			name:     "valid ASCII",
			input:    []byte("paystack,Nigeria"),
			expected: "paystack,Nigeria",
		},
		{
			name:     "valid multibyte",
			input:    []byte("Côte d’Ivoire"),
			expected: "Côte d’Ivoire",
		},
		{
			name:     "multibyte split across reads",
			input:    []byte("₦500 déclinée"),
			oneByte:  true,
			expected: "₦500 déclinée",
		},
		{
			name:     "invalid single byte replaced",
			input:    []byte{'o', 'k', 0x80, 'a', 'y'},
			expected: "ok?ay",
		},
		{
			name:     "truncated sequence at EOF replaced",
			input:    []byte{'o', 'k', 0xE2, 0x82},
			oneByte:  true,
			expected: "ok??",
		},
		{
			name:     "empty input",
			input:    []byte{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var src io.Reader = bytes.NewReader(tt.input)
			if tt.oneByte {
				src = iotest.OneByteReader(src)
			}
			result, err := io.ReadAll(&utf8Sanitizer{r: src})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer_SmallReadBuffer(t *testing.T) {
	input := []byte("₦500,Côte d’Ivoire,\xff")
	want := "₦500,Côte d’Ivoire,?"

	for _, size := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("buffer %d", size), func(t *testing.T) {
			s := &utf8Sanitizer{r: iotest.HalfReader(bytes.NewReader(input))}
			var out bytes.Buffer
			p := make([]byte, size)
			for {
				n, err := s.Read(p)
				out.Write(p[:n])
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if n == 0 {
					t.Fatal("Read returned no bytes and no error")
				}
			}
			if out.String() != want {
				t.Errorf("got %q, want %q", out.String(), want)
			}
		})
	}
}

func TestCountingReader(t *testing.T) {
	input := strings.Repeat("x", 1000)

	t.Run("counts bytes", func(t *testing.T) {
		reader := WrapExport(strings.NewReader(input), 0)
		if _, err := io.Copy(io.Discard, reader); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reader.BytesRead != int64(len(input)) {
			t.Errorf("BytesRead = %d, want %d", reader.BytesRead, len(input))
		}
	})

	t.Run("limit exactly met", func(t *testing.T) {
		reader := WrapExport(strings.NewReader(input), int64(len(input)))
		if _, err := io.Copy(io.Discard, reader); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("limit exceeded", func(t *testing.T) {
		reader := WrapExport(strings.NewReader(input), 100)
		_, err := io.Copy(io.Discard, reader)
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("err = %v, want ErrFileTooLarge", err)
		}
	})
}

func TestWrapExport(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte{'h', 'u', 0x80, 'b'}...)

	reader := WrapExport(bytes.NewReader(input), 0)
	result, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(result) != "hu?b" {
		t.Errorf("got %q, want %q", string(result), "hu?b")
	}
	if reader.BytesRead != 4 {
		t.Errorf("BytesRead = %d, want 4", reader.BytesRead)
	}
}
