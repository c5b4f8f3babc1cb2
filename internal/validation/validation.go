package validation

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	ErrUsernameTooShort = errors.New("사용자명은 3자 이상이어야 합니다")
	ErrPasswordTooShort = errors.New("비밀번호는 4자 이상이어야 합니다")
	ErrProjectNameEmpty = errors.New("프로젝트명을 입력하세요")
	ErrItemNameEmpty    = errors.New("시험항목명을 입력하세요")
	ErrNameTooLong      = errors.New("이름이 너무 깁니다")
)

const maxNameRunes = 255

// ValidateUsername enforces the minimum username length.
func ValidateUsername(username string) error {
	if utf8.RuneCountInString(strings.TrimSpace(username)) < 3 {
		return ErrUsernameTooShort
	}
	if utf8.RuneCountInString(username) > maxNameRunes {
		return ErrNameTooLong
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < 4 {
		return ErrPasswordTooShort
	}
	return nil
}

// ValidateProjectName requires a non-empty, bounded project name.
func ValidateProjectName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrProjectNameEmpty
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		return ErrNameTooLong
	}
	return nil
}

// ValidateItemName requires a non-empty, bounded item name.
func ValidateItemName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrItemNameEmpty
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		return ErrNameTooLong
	}
	return nil
}

// SafeUploadName reports whether name is a bare filename that cannot
// escape the upload directory when joined to it.
func SafeUploadName(name string) bool {
	if name == "" {
		return false
	}
	if strings.ContainsAny(name, "/\\") {
		return false
	}
	if strings.Contains(name, "..") || name == "." {
		return false
	}
	return filepath.Base(name) == name
}

// ImportExtension validates an uploaded import file's declared extension
// and returns it lowercased.
func ImportExtension(filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xlsx", ".csv":
		return ext, true
	}
	return ext, false
}
