package processor

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

// ErrInvalidToken токен поврежден или зашифрован другим ключом
var ErrInvalidToken = errors.New("некорректный токен шифрования")

// OpenAESGCM расшифровывает данные, зашифрованные SealAESGCM.
func OpenAESGCM(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrInvalidToken
	}
	nonce, ct := ciphertext[:nonceSize], ciphertext[nonceSize:] // nonce записан перед шифртекстом
	plaintext, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return plaintext, nil
}
