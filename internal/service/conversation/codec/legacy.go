package codec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/base64"
	"errors"
	"strings"
	"unicode/utf8"
)

// legacyPrefix is base64 of "Salted__".
const legacyPrefix = "U2FsdGVkX1"

var saltedMagic = []byte("Salted__")

var (
	errBadBase64  = errors.New("codec: payload is not base64")
	errTooShort   = errors.New("codec: payload too short")
	errBadMagic   = errors.New("codec: missing salt header")
	errBadBlock   = errors.New("codec: ciphertext is not block aligned")
	errBadPadding = errors.New("codec: invalid padding")
	errBadUTF8    = errors.New("codec: plaintext is not valid utf-8")
)

// LooksLegacy reports whether raw carries the legacy salted signature.
func LooksLegacy(raw string) bool {
	return strings.HasPrefix(strings.TrimSpace(raw), legacyPrefix)
}

func decryptLegacy(raw string, passphrase []byte) (string, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return "", errBadBase64
	}
	if len(data) < 16+aes.BlockSize {
		return "", errTooShort
	}
	if !bytes.Equal(data[:8], saltedMagic) {
		return "", errBadMagic
	}

	salt, ct := data[8:16], data[16:]
	if len(ct)%aes.BlockSize != 0 {
		return "", errBadBlock
	}

	key, iv := deriveKeyIV(passphrase, salt, 32, aes.BlockSize)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	plain, err = unpad(plain)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", errBadUTF8
	}
	return string(plain), nil
}

// deriveKeyIV is OpenSSL's EVP_BytesToKey with MD5 and a single iteration.
func deriveKeyIV(passphrase, salt []byte, keyLen, ivLen int) ([]byte, []byte) {
	var (
		out  []byte
		prev []byte
	)
	for len(out) < keyLen+ivLen {
		h := md5.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		out = append(out, prev...)
	}
	return out[:keyLen], out[keyLen : keyLen+ivLen]
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, errBadPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, errBadPadding
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errBadPadding
		}
	}
	return b[:len(b)-n], nil
}
