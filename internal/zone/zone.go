// Package zone содержит таблицу стоимости доставки по зонам.
package zone

// Zone описывает зону доставки с фиксированной стоимостью.
type Zone struct {
	Name        string
	DeliveryFee int64
}

// zones перечислены в порядке показа клиенту.
var zones = []Zone{
	{Name: "Cerro", DeliveryFee: 600},
	{Name: "Plaza de la Revolución", DeliveryFee: 600},
	{Name: "Diez de Octubre", DeliveryFee: 600},
	{Name: "Boyeros (Aeropuerto)", DeliveryFee: 600},
	{Name: "Centro Habana", DeliveryFee: 720},
	{Name: "Habana Vieja", DeliveryFee: 720},
	{Name: "Marianao", DeliveryFee: 720},
	{Name: "Arroyo Naranjo", DeliveryFee: 720},
	{Name: "Playa", DeliveryFee: 840},
	{Name: "La Lisa", DeliveryFee: 840},
	{Name: "San Miguel del Padrón", DeliveryFee: 840},
	{Name: "Regla", DeliveryFee: 960},
	{Name: "Guanabacoa", DeliveryFee: 960},
	{Name: "Cotorro", DeliveryFee: 1080},
	{Name: "Habana del Este", DeliveryFee: 1080},
}

var feeByName = func() map[string]int64 {
	m := make(map[string]int64, len(zones))
	for _, z := range zones {
		m[z.Name] = z.DeliveryFee
	}
	return m
}()

// All возвращает копию таблицы зон.
func All() []Zone {
	res := make([]Zone, len(zones))
	copy(res, zones)
	return res
}

// Known сообщает, есть ли зона в таблице.
func Known(name string) bool {
	_, ok := feeByName[name]
	return ok
}

// FeeFor возвращает стоимость доставки в зону. Для неизвестной зоны возвращается 0.
func FeeFor(name string) int64 {
	return feeByName[name]
}
