package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateUsername("alice"))
	assert.NoError(t, ValidateUsername("김철수"))
	assert.ErrorIs(t, ValidateUsername("ab"), ErrUsernameTooShort)
	assert.ErrorIs(t, ValidateUsername("  a  "), ErrUsernameTooShort)
	assert.ErrorIs(t, ValidateUsername(""), ErrUsernameTooShort)
	assert.ErrorIs(t, ValidateUsername(strings.Repeat("a", 256)), ErrNameTooLong)
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidatePassword("pass"))
	assert.ErrorIs(t, ValidatePassword("abc"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePassword(""), ErrPasswordTooShort)
}

func TestValidateProjectName(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateProjectName("무선모듈 신뢰성"))
	assert.ErrorIs(t, ValidateProjectName(""), ErrProjectNameEmpty)
	assert.ErrorIs(t, ValidateProjectName("   "), ErrProjectNameEmpty)
	assert.ErrorIs(t, ValidateProjectName(strings.Repeat("가", 256)), ErrNameTooLong)
	// Exactly at the limit is allowed
	assert.NoError(t, ValidateProjectName(strings.Repeat("가", 255)))
}

func TestValidateItemName(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateItemName("전원 시험"))
	assert.ErrorIs(t, ValidateItemName(" "), ErrItemNameEmpty)
	assert.ErrorIs(t, ValidateItemName(strings.Repeat("a", 300)), ErrNameTooLong)
}

func TestSafeUploadName(t *testing.T) {
	t.Parallel()

	assert.True(t, SafeUploadName("1712345-ab12cd34.png"))
	assert.True(t, SafeUploadName("report.xlsx"))

	assert.False(t, SafeUploadName(""))
	assert.False(t, SafeUploadName("../etc/passwd"))
	assert.False(t, SafeUploadName("..\\windows\\system32"))
	assert.False(t, SafeUploadName("a/b.png"))
	assert.False(t, SafeUploadName("a..b.png"))
	assert.False(t, SafeUploadName("."))
}

func TestImportExtension(t *testing.T) {
	t.Parallel()

	ext, ok := ImportExtension("items.xlsx")
	assert.True(t, ok)
	assert.Equal(t, ".xlsx", ext)

	ext, ok = ImportExtension("ITEMS.XLSX")
	assert.True(t, ok)
	assert.Equal(t, ".xlsx", ext)

	_, ok = ImportExtension("items.csv")
	assert.True(t, ok)

	_, ok = ImportExtension("items.xls")
	assert.False(t, ok)
	_, ok = ImportExtension("items")
	assert.False(t, ok)
	_, ok = ImportExtension("items.exe")
	assert.False(t, ok)
}
