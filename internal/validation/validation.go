// Package validation содержит функции валидации пользовательского ввода.
package validation

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrInvalidPrice возвращается для нечислового, неположительного или слишком большого значения цены.
	ErrInvalidPrice = errors.New("price must be a positive integer")
	// ErrInvalidPhone возвращается для строки, не похожей на номер телефона.
	ErrInvalidPhone = errors.New("invalid phone number")
	// ErrEmptyText возвращается для пустого текста или текста сверх допустимой длины.
	ErrEmptyText = errors.New("text is empty or too long")
)

const (
	// MaxTextLength ограничивает длину имени, адреса и названия товара.
	MaxTextLength = 200
	// MaxPrice задаёт верхнюю границу цены позиции.
	MaxPrice int64 = 10_000_000
)

// ParsePrice разбирает цену в CUP от 1 до MaxPrice. Допускаются пробелы по краям и суффикс «CUP».
func ParsePrice(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(strings.ToUpper(s), "CUP"))

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 || v > MaxPrice {
		return 0, ErrInvalidPrice
	}
	return v, nil
}

// NormalizePhone проверяет номер и возвращает его без пробелов, скобок и дефисов.
// Номер может начинаться с «+» и должен содержать от 6 до 15 цифр.
func NormalizePhone(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidPhone
	}

	var b strings.Builder
	digits := 0
	for i, ch := range s {
		switch {
		case unicode.IsDigit(ch):
			b.WriteRune(ch)
			digits++
		case ch == '+' && i == 0:
			b.WriteRune(ch)
		case ch == ' ' || ch == '-' || ch == '(' || ch == ')':
		default:
			return "", ErrInvalidPhone
		}
	}

	if digits < 6 || digits > 15 {
		return "", ErrInvalidPhone
	}
	return b.String(), nil
}

// RequireText обрезает пробелы и проверяет, что текст не пуст и не слишком длинный.
func RequireText(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > MaxTextLength {
		return "", ErrEmptyText
	}
	return s, nil
}
