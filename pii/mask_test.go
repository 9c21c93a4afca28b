package pii

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMask(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"contact me at jane.doe@example.com or 010-1234-5678", "contact me at j***@example.com or 010-****-5678"},
		{"01098765432로 연락주세요", "010-****-5432로 연락주세요"},
		{"서울 02-123-4567", "서울 02-****-4567"},
		{"주문번호 123456789", "주문번호 12*****89"},
		{"인스타 @foodie_kim 팔로우", "인스타 @f*** 팔로우"},
		{"홍길동님 감사합니다", "홍*동님 감사합니다"},
		{"민수님 최고", "민*님 최고"},
		{"사장님 친절해요", "사장님 친절해요"},
		{"2024-03-01 방문", "2024-03-01 방문"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Mask(tt.in), tt.in)
	}
}

func TestMaskIsIdempotent(t *testing.T) {
	inputs := []string{
		"contact me at jane.doe@example.com or 010-1234-5678",
		"@a @foodie 홍길동님 민수님 1234567",
	}
	for _, in := range inputs {
		once := Mask(in)
		assert.Equal(t, once, Mask(once), in)
	}
}

func TestMaskNeverLeaksOriginal(t *testing.T) {
	out := Mask("jane.doe@example.com 010-1234-5678")
	assert.NotContains(t, out, "jane.doe@example.com")
	assert.NotContains(t, out, "010-1234-5678")
	assert.NotContains(t, out, "1234")
}

func TestMaskCell(t *testing.T) {
	assert.Equal(t, int64(5), MaskCell(int64(5)))
	assert.Nil(t, MaskCell(nil))
	assert.Equal(t, "a***@b.io", MaskCell("ab@b.io"))
}
