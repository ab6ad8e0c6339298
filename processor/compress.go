package processor

import (
	"github.com/golang/snappy"
)

// CompressValue сжимает значение перед шифрованием
func CompressValue(data []byte) []byte {
	return snappy.Encode(nil, data)
}

func DecompressValue(data []byte) ([]byte, error) {
	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, err
	}
	return decompressed, nil
}
