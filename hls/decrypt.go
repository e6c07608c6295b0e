package hls

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/anigrab-cli/anigrab/filesystem"
)

// zeroIV is the all-zero initialization vector fixed by the provider's
// delivery scheme. This is the provider's documented convention, not a general
// HLS feature, and is deliberately not configurable.
var zeroIV = make([]byte, aes.BlockSize)

// decryptSegment decrypts one AES-128-CBC segment file into a sibling
// plaintext file, stripping the PKCS#7 padding.
func decryptSegment(src, dst string, key []byte) error {
	ciphertext, err := filesystem.API().ReadFile(src)
	if err != nil {
		return err
	}

	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return fmt.Errorf("decrypt %s: ciphertext length %d is not block-aligned", src, len(ciphertext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("decrypt %s: %w", src, err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, zeroIV).CryptBlocks(plaintext, ciphertext)

	plaintext, err = stripPadding(plaintext)
	if err != nil {
		return fmt.Errorf("decrypt %s: %w", src, err)
	}

	return filesystem.API().WriteFile(dst, plaintext, 0644)
}

func stripPadding(data []byte) ([]byte, error) {
	padding := int(data[len(data)-1])
	if padding < 1 || padding > aes.BlockSize || padding > len(data) {
		return nil, fmt.Errorf("invalid padding byte %d", padding)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-padding], nil
}
