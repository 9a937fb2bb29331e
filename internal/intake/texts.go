package intake

import (
	"fmt"
	"strings"

	"github.com/stroymat/materials-bot/internal/advisor"
	"github.com/stroymat/materials-bot/internal/catalog"
	"github.com/stroymat/materials-bot/internal/models"
)

const (
	menuOrder    = "📦 Заказать материалы"
	menuPrices   = "💰 Узнать цены"
	menuContacts = "📞 Контакты"
	menuAdvisor  = "🤖 Помощь ИИ в выборе"

	welcomeText = `🏗️ Добро пожаловать в сервис заказа строительных материалов!

Я помогу вам:
• Выбрать подходящий материал
• Рассчитать необходимое количество
• Оформить заказ с доставкой
• Связаться с менеджером

Что вас интересует?`

	contactsText = `📞 КОНТАКТЫ

☎️ Телефон: +7 (999) 123-45-67
📧 Email: info@materials.ru
🕐 Режим работы: Пн-Пт 8:00-18:00, Сб 9:00-15:00

📍 Адрес склада: г. Москва, ул. Складская, 1

🚚 Доставка по Москве и области
⚡ Срочная доставка в день заказа`

	managerText = `👨‍💼 СВЯЗЬ С МЕНЕДЖЕРОМ

📞 Телефон: +7 (999) 123-45-67
📧 Email: manager@materials.ru
💬 Telegram: @materials_manager

🕐 Время работы: Пн-Пт 8:00-18:00

Менеджер поможет с:
• Консультацией по материалам
• Расчетом точного количества
• Специальными предложениями
• Срочными заказами`

	chooseMaterialText  = "🛒 Выберите материал из каталога:"
	unknownMaterialText = "❌ Такого материала нет в каталоге. Выберите из списка:"
	askTaskText         = "🤖 Опишите вашу задачу:\n\nНапример: 'Нужен материал для фундамента дома 10х12 метров' или 'Хочу сделать дренаж участка'"
	analyzingText       = "🤖 Анализирую ваш запрос..."
	advisorOffText      = "🤖 ИИ консультант временно недоступен.\n📞 Обратитесь к нашему менеджеру для персональной консультации!"
	notUnderstoodText   = "Не понял ваш запрос. Выберите опцию из меню или обратитесь к менеджеру."
	staleOrderText      = "Этот заказ уже неактуален. Нажмите /start, чтобы начать заново."
	cancelledText       = "❌ Заказ отменен. Если нужна помощь - обращайтесь!"
	failureText         = "⚠️ Что-то пошло не так. Попробуйте еще раз или нажмите /start."

	quantityNotANumberText  = "❌ Пожалуйста, укажите количество числом (например: 5 или 10.5):"
	quantityNonPositiveText = "❌ Количество должно быть больше 0. Попробуйте еще раз:"
	quantityTooLargeText    = "❌ Слишком большое количество. Обратитесь к менеджеру для крупных заказов или укажите количество до 1000:"
	addressTooShortText     = "❌ Пожалуйста, укажите полный адрес доставки\n(город, улица, дом):"
	phoneInvalidText        = "❌ Пожалуйста, укажите корректный номер телефона\n(например: +7 999 123-45-67 или 8 999 123 45 67):"
)

func mainMenu(advisorEnabled bool) [][]string {
	menu := [][]string{
		{menuOrder},
		{menuPrices, menuContacts},
	}
	if advisorEnabled {
		menu = append(menu, []string{menuAdvisor})
	}
	return menu
}

// materialKeyboard lays materials out two per row.
func materialKeyboard(cat *catalog.Catalog, advisorEnabled bool) [][]Button {
	keys := cat.Keys()
	var rows [][]Button
	for i := 0; i < len(keys); i += 2 {
		var row []Button
		for _, key := range keys[i:min(i+2, len(keys))] {
			e, _ := cat.Lookup(key)
			row = append(row, Button{
				Label: fmt.Sprintf("%s - %s₽/%s", e.Description, catalog.FormatPrice(e.UnitPrice), e.Unit),
				Data:  DataMaterialPrefix + key,
			})
		}
		rows = append(rows, row)
	}
	if advisorEnabled {
		rows = append(rows, []Button{{Label: "🤖 Консультация ИИ", Data: DataAIHelp}})
	}
	rows = append(rows, []Button{{Label: "👨‍💼 Связаться с менеджером", Data: DataContactManager}})
	return rows
}

func recommendationText(e catalog.Entry, rec advisor.Recommendation) string {
	return fmt.Sprintf(`🤖 РЕКОМЕНДАЦИЯ ИИ

📦 Материал: %s
💰 Цена: %s₽/%s

💡 Обоснование: %s

📏 Количество: %s %s

Хотите оформить заказ на рекомендованный материал?`,
		e.Description, catalog.FormatPrice(e.UnitPrice), e.Unit,
		rec.Explanation, rec.QuantityHint, e.Unit)
}

func recommendationKeyboard(key string) [][]Button {
	return [][]Button{
		{{Label: "✅ Заказать", Data: DataOrderPrefix + key}},
		{{Label: "🔄 Другой материал", Data: DataShowMaterials}},
		{{Label: "👨‍💼 Связаться с менеджером", Data: DataContactManager}},
	}
}

func selectedText(e catalog.Entry) string {
	return fmt.Sprintf("✅ Выбран: %s\n💰 Цена: %s₽ за %s\n\n📏 Укажите необходимое количество в %s:",
		e.Description, catalog.FormatPrice(e.UnitPrice), e.Unit, e.Unit)
}

func quantityPromptText(e catalog.Entry) string {
	return fmt.Sprintf("📏 Укажите необходимое количество в %s:", e.Unit)
}

func quantityAcceptedText(s AddressInput) string {
	return fmt.Sprintf("📦 Количество: %s %s\n💰 Примерная стоимость: %s₽ (без учета доставки)\n\n📍 Укажите адрес доставки:",
		s.Quantity.String(), s.Material.Unit, catalog.FormatPrice(s.Price))
}

func addressAcceptedText(address string) string {
	return fmt.Sprintf("📍 Адрес доставки: %s\n\n📞 Укажите ваш номер телефона для связи:", address)
}

func summaryText(cat *catalog.Catalog, o models.Order) string {
	description := o.Material
	if e, ok := cat.Lookup(o.Material); ok {
		description = e.Description
	}

	var sb strings.Builder
	sb.WriteString("📋 ПОДТВЕРЖДЕНИЕ ЗАКАЗА\n\n")
	sb.WriteString(fmt.Sprintf("👤 Заказчик: %s\n", o.DisplayName))
	sb.WriteString(fmt.Sprintf("📦 Материал: %s\n", description))
	sb.WriteString(fmt.Sprintf("📏 Количество: %s %s\n", o.Quantity.String(), o.Unit))
	sb.WriteString(fmt.Sprintf("💰 Примерная стоимость: %s₽\n", catalog.FormatPrice(o.EstimatedPrice)))
	sb.WriteString(fmt.Sprintf("📍 Адрес доставки: %s\n", o.Address))
	sb.WriteString(fmt.Sprintf("📞 Телефон: %s\n\n", o.Phone))
	sb.WriteString("⚠️ Итоговая стоимость может измениться с учетом доставки\n\n")
	sb.WriteString("Подтверждаете заказ?")
	return sb.String()
}

func confirmationKeyboard() [][]Button {
	return [][]Button{
		{{Label: "✅ Подтвердить заказ", Data: DataConfirmOrder}},
		{{Label: "❌ Отменить", Data: DataCancelOrder}},
	}
}

func acceptedText(number string) string {
	return fmt.Sprintf(`✅ ЗАКАЗ ПРИНЯТ!

🆔 Номер заказа: #%s

📞 Менеджер свяжется с вами в ближайшее время для уточнения деталей доставки.

⏰ Обычно это происходит в течение 30 минут в рабочее время.

Спасибо за обращение! 🙏`, number)
}
