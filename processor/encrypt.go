package processor

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"
)

// SealAESGCM шифрует данные AES-GCM, добавляя nonce в начало зашифрованного текста.
func SealAESGCM(key []byte, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key) // Ключ 16, 24 или 32 байта
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil { // Новый nonce на каждое значение
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}
