package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateAndParseJWT(t *testing.T) {
	tokenStr, err := GenerateJWT("cust-1", string(RoleCustomer), "chat_service")
	assert.NoError(t, err)

	claims, err := ParseJWT(tokenStr)
	assert.NoError(t, err)
	assert.Equal(t, "cust-1", claims.MemberID)
	assert.Equal(t, string(RoleCustomer), claims.Role)
}

func TestParseJWT_Garbage(t *testing.T) {
	_, err := ParseJWT("not-a-token")
	assert.Error(t, err)
}
