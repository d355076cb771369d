package pdf

import (
	"testing"
)

func TestNewToUnicodeCMap(t *testing.T) {
	cmap := NewToUnicodeCMap()
	if cmap == nil {
		t.Fatal("NewToUnicodeCMap() returned nil")
	}
	if cmap.cidToUnicode == nil {
		t.Error("cidToUnicode map not initialized")
	}
	if cmap.GetMappingCount() != 0 {
		t.Errorf("new CMap has %d mappings, expected 0", cmap.GetMappingCount())
	}
}

func TestParseBeginBFChar(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[uint32]string
	}{
		{
			name: "Single mapping",
			input: `
				1 beginbfchar
				<0001> <0041>
				endbfchar
			`,
			expected: map[uint32]string{
				0x0001: "A",
			},
		},
		{
			name: "Multiple mappings",
			input: `
				3 beginbfchar
				<0001> <0041>
				<0002> <0042>
				<0003> <0043>
				endbfchar
			`,
			expected: map[uint32]string{
				0x0001: "A",
				0x0002: "B",
				0x0003: "C",
			},
		},
		{
			name: "Diameter and euro glyphs",
			input: `
				2 beginbfchar
				<0001> <00D8>
				<0002> <20AC>
				endbfchar
			`,
			expected: map[uint32]string{
				0x0001: "Ø",
				0x0002: "€",
			},
		},
		{
			name: "Byte order mark is dropped",
			input: `
				2 beginbfchar
				<0001> <FEFF0041>
				<0002> <FEFF0042>
				endbfchar
			`,
			expected: map[uint32]string{
				0x0001: "A",
				0x0002: "B",
			},
		},
		{
			name: "Single byte codes",
			input: `
				1 beginbfchar
				<31> <0031>
				endbfchar
			`,
			expected: map[uint32]string{
				0x31: "1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmap := NewToUnicodeCMap()
			if err := cmap.Parse([]byte(tt.input)); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			for cid, expected := range tt.expected {
				got, ok := cmap.MapCIDToUnicode(cid)
				if !ok {
					t.Errorf("CID %04X not found in mapping", cid)
					continue
				}
				if got != expected {
					t.Errorf("CID %04X: expected %q, got %q", cid, expected, got)
				}
			}
		})
	}
}

func TestParseBeginBFRange(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		testCIDs map[uint32]string
		missing  []uint32
	}{
		{
			name: "Contiguous range",
			input: `
				1 beginbfrange
				<0001> <0005> <0041>
				endbfrange
			`,
			testCIDs: map[uint32]string{
				0x0001: "A",
				0x0003: "C",
				0x0005: "E",
			},
			missing: []uint32{0x0006},
		},
		{
			name: "Array destination",
			input: `
				1 beginbfrange
				<0010> <0012> [<0058> <0059> <005A>]
				endbfrange
			`,
			testCIDs: map[uint32]string{
				0x0010: "X",
				0x0011: "Y",
				0x0012: "Z",
			},
		},
		{
			name: "Mixed forms",
			input: `
				2 beginbfrange
				<0030> <0039> <0030>
				<0040> <0041> [<20AC> <00D8>]
				endbfrange
			`,
			testCIDs: map[uint32]string{
				0x0030: "0",
				0x0039: "9",
				0x0040: "€",
				0x0041: "Ø",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmap := NewToUnicodeCMap()
			if err := cmap.Parse([]byte(tt.input)); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			for cid, expected := range tt.testCIDs {
				got, ok := cmap.MapCIDToUnicode(cid)
				if !ok {
					t.Errorf("CID %04X not found", cid)
					continue
				}
				if got != expected {
					t.Errorf("CID %04X: expected %q, got %q", cid, expected, got)
				}
			}
			for _, cid := range tt.missing {
				if _, ok := cmap.MapCIDToUnicode(cid); ok {
					t.Errorf("CID %04X should not be mapped", cid)
				}
			}
		})
	}
}

func TestDecode(t *testing.T) {
	cmapData := `
		1 beginbfrange
		<0020> <007E> <0020>
		endbfrange
	`

	cmap := NewToUnicodeCMap()
	if err := cmap.Parse([]byte(cmapData)); err != nil {
		t.Fatalf("Failed to parse CMap: %v", err)
	}

	tests := []struct {
		name     string
		input    []byte
		width    int
		expected string
	}{
		{
			name:     "Two byte codes",
			input:    []byte{0x00, 0x48, 0x00, 0x65, 0x00, 0x6C, 0x00, 0x6C, 0x00, 0x6F},
			width:    2,
			expected: "Hello",
		},
		{
			name:     "Single byte codes",
			input:    []byte{0x48, 0x65, 0x6C, 0x6C, 0x6F},
			width:    1,
			expected: "Hello",
		},
		{
			name:     "Unmapped bytes preserved",
			input:    []byte{0x00, 0x48, 0xFF, 0xFF, 0x00, 0x65},
			width:    2,
			expected: "H\xff\xffe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cmap.Decode(tt.input, tt.width); got != tt.expected {
				t.Errorf("Decode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDecodeHexString(t *testing.T) {
	cmapData := `
		4 beginbfchar
		<0048> <0048>
		<0065> <0065>
		<006C> <006C>
		<006F> <006F>
		endbfchar
	`

	cmap := NewToUnicodeCMap()
	if err := cmap.Parse([]byte(cmapData)); err != nil {
		t.Fatalf("Failed to parse CMap: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Without brackets", input: "00480065006C006C006F", expected: "Hello"},
		{name: "With brackets", input: "<00480065006C006C006F>", expected: "Hello"},
		{name: "Invalid hex", input: "GGGG", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cmap.DecodeHexString(tt.input); got != tt.expected {
				t.Errorf("DecodeHexString() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGetMappingCount(t *testing.T) {
	cmap := NewToUnicodeCMap()
	cmapData := `
		3 beginbfchar
		<0001> <0041>
		<0002> <0042>
		<0003> <0043>
		endbfchar
		1 beginbfrange
		<0010> <0015> <0061>
		endbfrange
	`
	if err := cmap.Parse([]byte(cmapData)); err != nil {
		t.Fatalf("Failed to parse CMap: %v", err)
	}

	// 3 direct mappings + 6 range mappings (0010-0015 inclusive)
	if count := cmap.GetMappingCount(); count != 9 {
		t.Errorf("CMap has %d mappings, expected 9", count)
	}
}

func TestComplexRealWorldCMap(t *testing.T) {
	cmapData := `
		/CIDInit /ProcSet findresource begin
		12 dict begin
		begincmap
		/CIDSystemInfo
		<< /Registry (Adobe)
		/Ordering (UCS)
		/Supplement 0
		>> def
		/CMapName /Adobe-Identity-UCS def
		/CMapType 2 def
		1 begincodespacerange
		<0000> <FFFF>
		endcodespacerange
		3 beginbfchar
		<0003> <0020>
		<0048> <AC00>
		<0049> <AC01>
		endbfchar
		2 beginbfrange
		<004A> <004C> <AC02>
		<0050> <0052> [<AC10> <AC11> <AC12>]
		endbfrange
		endcmap
		CMapName currentdict /CMap defineresource pop
		end
		end
	`

	cmap := NewToUnicodeCMap()
	if err := cmap.Parse([]byte(cmapData)); err != nil {
		t.Fatalf("Failed to parse complex CMap: %v", err)
	}
	if cmap.CodeLength() != 2 {
		t.Errorf("CodeLength() = %d, want 2", cmap.CodeLength())
	}

	tests := map[uint32]string{
		0x0003: " ",
		0x0048: string(rune(0xAC00)),
		0x0049: string(rune(0xAC01)),
		0x004A: string(rune(0xAC02)),
		0x004C: string(rune(0xAC04)),
		0x0050: string(rune(0xAC10)),
		0x0052: string(rune(0xAC12)),
	}

	for cid, expected := range tests {
		got, ok := cmap.MapCIDToUnicode(cid)
		if !ok {
			t.Errorf("CID %04X not found", cid)
			continue
		}
		if got != expected {
			t.Errorf("CID %04X: expected %q, got %q", cid, expected, got)
		}
	}
}

func BenchmarkParse(b *testing.B) {
	cmapData := []byte(`
		3 beginbfchar
		<0001> <0041>
		<0002> <0042>
		<0003> <0043>
		endbfchar
		1 beginbfrange
		<0010> <00FF> <0061>
		endbfrange
	`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cmap := NewToUnicodeCMap()
		_ = cmap.Parse(cmapData)
	}
}

func BenchmarkDecode(b *testing.B) {
	cmap := NewToUnicodeCMap()
	_ = cmap.Parse([]byte(`
		1 beginbfrange
		<0020> <007E> <0020>
		endbfrange
	`))

	data := []byte{0x00, 0x48, 0x00, 0x65, 0x00, 0x6C, 0x00, 0x6C, 0x00, 0x6F}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cmap.Decode(data, 2)
	}
}
