// Package cart реализует накопление выбранных товаров в корзине сессии.
package cart

import "github.com/mmeshcher/dolezza-bot/internal/model"

// Cart хранит строки корзины в порядке первого добавления.
// Для одного товара в корзине всегда одна строка.
type Cart struct {
	lines []model.CartLine
}

// Add добавляет товар в корзину, увеличивая количество, если товар уже есть.
func (c *Cart) Add(p model.Product) {
	for i := range c.lines {
		if c.lines[i].ProductID == p.ID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, model.CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  1,
	})
}

// Lines возвращает копию строк корзины.
func (c *Cart) Lines() []model.CartLine {
	return append([]model.CartLine(nil), c.lines...)
}

// Summary возвращает строки корзины и их сумму.
func (c *Cart) Summary() ([]model.CartLine, int64) {
	return Summarize(c.lines)
}

// Clone возвращает независимую копию корзины.
func (c *Cart) Clone() Cart {
	return Cart{lines: c.Lines()}
}

// Len возвращает количество строк.
func (c *Cart) Len() int {
	return len(c.lines)
}

// IsEmpty сообщает, пуста ли корзина.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Clear очищает корзину.
func (c *Cart) Clear() {
	c.lines = nil
}

// Summarize возвращает копию строк и сумму price*quantity по ним.
func Summarize(lines []model.CartLine) ([]model.CartLine, int64) {
	res := make([]model.CartLine, len(lines))
	copy(res, lines)

	var subtotal int64
	for _, l := range res {
		subtotal += l.Amount()
	}
	return res, subtotal
}
