package processor

import (
	"encoding/base64"
)

// SealToken объединяет два этапа обработки значения:
// 1. Сжатие Snappy
// 2. Шифрование AES-GCM
// Результат кодируется base64url без дополнения.
func SealToken(key, plaintext []byte) (string, error) {
	sealed, err := SealAESGCM(key, CompressValue(plaintext))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// OpenToken выполняет обратный процесс: декодирование, расшифровка и распаковка.
func OpenToken(key []byte, token string) ([]byte, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	compressed, err := OpenAESGCM(key, sealed)
	if err != nil {
		return nil, err
	}
	plaintext, err := DecompressValue(compressed)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return plaintext, nil
}
