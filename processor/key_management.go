// processor/key_management.go
package processor

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/scrypt"
)

// KeySize размер ключей AES-256
const KeySize = 32

// GenerateRandomKey генерирует случайный ключ размером size байт.
func GenerateRandomKey(size int) ([]byte, error) {
	key := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// DeriveMasterKey получает мастер-ключ из парольной фразы (scrypt N=32768, r=8, p=1)
func DeriveMasterKey(passphrase string, salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(passphrase), salt, 1<<15, 8, 1, KeySize)
}

// DeriveColumnKey отдельный ключ для колонки через HKDF-SHA256
func DeriveColumnKey(master []byte, column string) ([]byte, error) {
	reader := hkdf.New(sha256.New, master, nil, []byte("finance_etl/column/"+column))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}
