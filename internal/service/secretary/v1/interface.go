package secretary

// Secretary defines a set of methods for types implementing Secretary.
type Secretary interface {
	Encode(data string) string
	Decode(msg string) (string, error)
	NewToken() (string, string, error)
	GetTokenForAccount(accountID string) (string, error)
	ValidateToken(accessToken string) (string, error)
}
