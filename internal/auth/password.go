package auth

import "golang.org/x/crypto/bcrypt"

// PasswordCost is fixed so digests stay verifiable across deployments.
const PasswordCost = 10

func HashPassword(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// VerifyPassword returns false for a wrong password and for a malformed digest.
func VerifyPassword(plaintext string, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
