package services

import (
	"fmt"
	"time"
)

// Форматы номеров зафиксированы контрактом совместимости:
// заявка — "Д/М-N" без ведущих нулей, заказ-наряд — "ЗН-ГГГГ-NNN".

func RequestNumberScope(t time.Time) string {
	return "request:" + t.Format("2006-01-02")
}

func OrderNumberScope(t time.Time) string {
	return fmt.Sprintf("work_order:%d", t.Year())
}

func FormatRequestNumber(t time.Time, seq int64) string {
	return fmt.Sprintf("%d/%d-%d", t.Day(), int(t.Month()), seq)
}

func FormatOrderNumber(t time.Time, seq int64) string {
	return fmt.Sprintf("ЗН-%d-%03d", t.Year(), seq)
}
