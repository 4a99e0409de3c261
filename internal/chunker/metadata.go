package chunker

// FilterComplexMetadata keeps only scalar values that every vector store can
// persist: strings, booleans, integers and floats.
func FilterComplexMetadata(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		switch v.(type) {
		case string, bool,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
			out[k] = v
		}
	}
	return out
}
