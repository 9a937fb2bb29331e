// Package intake runs the ordering dialogue: material, quantity, address,
// phone, confirmation. It owns every user's session and open order.
package intake

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/stroymat/materials-bot/internal/advisor"
	"github.com/stroymat/materials-bot/internal/catalog"
	"github.com/stroymat/materials-bot/internal/dispatch"
	"github.com/stroymat/materials-bot/internal/models"
	"github.com/stroymat/materials-bot/internal/validate"
)

type Recommender interface {
	Enabled() bool
	Recommend(ctx context.Context, query string) advisor.Recommendation
}

// Dispatcher relays confirmed orders. It must not block.
type Dispatcher interface {
	Dispatch(order models.Order)
}

type Machine struct {
	catalog    *catalog.Catalog
	advisor    Recommender
	dispatcher Dispatcher
	store      *Store
	logger     *slog.Logger
	now        func() time.Time
}

func New(cat *catalog.Catalog, adv Recommender, disp Dispatcher, logger *slog.Logger) *Machine {
	return &Machine{
		catalog:    cat,
		advisor:    adv,
		dispatcher: disp,
		store:      NewStore(),
		logger:     logger,
		now:        time.Now,
	}
}

// Handle processes one event for one user. Calls for the same user must not
// overlap; different users may be handled concurrently.
func (m *Machine) Handle(ctx context.Context, ev Event, reply func(Reply)) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("dialogue handler panicked", "user_id", ev.UserID, "panic", r)
			reply(Reply{Text: failureText})
		}
	}()

	if ev.Kind == EventStart {
		m.store.Reset(ev.UserID)
		reply(Reply{Text: welcomeText, Menu: mainMenu(m.advisor.Enabled())})
		return
	}

	sess := m.store.Session(ev.UserID)
	m.logger.Debug("handling event", "user_id", ev.UserID, "state", sess.State(), "kind", ev.Kind)

	switch s := sess.(type) {
	case Idle:
		m.idle(ctx, ev, reply)
	case MaterialSelection:
		m.materialSelection(ctx, ev, s, reply)
	case QuantityInput:
		m.quantityInput(ev, s, reply)
	case AddressInput:
		m.addressInput(ev, s, reply)
	case ContactInput:
		m.contactInput(ev, s, reply)
	case Confirmation:
		m.confirmation(ev, s, reply)
	}
}

func (m *Machine) idle(ctx context.Context, ev Event, reply func(Reply)) {
	if ev.Kind == EventButton {
		switch ev.Payload {
		case DataConfirmOrder, DataCancelOrder:
			reply(Reply{Text: staleOrderText, Edit: true})
		default:
			// Menus sent earlier stay usable.
			m.selectionButton(ev, MaterialSelection{}, reply)
		}
		return
	}

	text := strings.ToLower(ev.Payload)
	switch {
	case strings.Contains(text, "заказать") || strings.Contains(text, "материал"):
		m.showCatalog(ev.UserID, MaterialSelection{}, false, reply)
	case strings.Contains(text, "цен"):
		reply(Reply{Text: m.catalog.PriceList()})
	case strings.Contains(text, "контакт"):
		reply(Reply{Text: contactsText})
	case isHelpRequest(text):
		m.askTask(ev.UserID, MaterialSelection{}, false, reply)
	case m.advisor.Enabled():
		m.consult(ctx, ev, reply)
	default:
		reply(Reply{Text: notUnderstoodText})
	}
}

// helpWords make up a bare request for advice, such as the menu label.
// True marks words that ask for help; false marks filler.
var helpWords = map[string]bool{
	"помощь": true, "помогите": true, "помочь": true,
	"выбор": true, "выбора": true, "выборе": true, "выбором": true, "выбрать": true,
	"ии": true, "ai": true,
	"в": false, "с": false, "по": false, "мне": false, "нужна": false, "пожалуйста": false,
}

// isHelpRequest reports whether lowered text only asks for advice and says
// nothing about the job itself.
func isHelpRequest(text string) bool {
	asked := false
	for _, w := range strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) }) {
		asking, known := helpWords[w]
		if !known {
			return false
		}
		asked = asked || asking
	}
	return asked
}

func (m *Machine) materialSelection(ctx context.Context, ev Event, s MaterialSelection, reply func(Reply)) {
	if ev.Kind == EventButton {
		m.selectionButton(ev, s, reply)
		return
	}
	if !m.advisor.Enabled() {
		m.store.SetSession(ev.UserID, Idle{})
		reply(Reply{Text: advisorOffText})
		return
	}
	m.consult(ctx, ev, reply)
}

func (m *Machine) selectionButton(ev Event, s MaterialSelection, reply func(Reply)) {
	data := ev.Payload
	switch {
	case data == DataAIHelp:
		m.askTask(ev.UserID, s, true, reply)
	case data == DataContactManager:
		m.store.Reset(ev.UserID)
		reply(Reply{Text: managerText, Edit: true})
	case data == DataShowMaterials:
		m.showCatalog(ev.UserID, s, true, reply)
	case strings.HasPrefix(data, DataMaterialPrefix):
		m.selectMaterial(ev.UserID, strings.TrimPrefix(data, DataMaterialPrefix), "", reply)
	case strings.HasPrefix(data, DataOrderPrefix):
		key := strings.TrimPrefix(data, DataOrderPrefix)
		advice := ""
		if s.Advice != nil && s.Advice.MaterialKey == key {
			advice = s.Advice.Explanation
		}
		m.selectMaterial(ev.UserID, key, advice, reply)
	default:
		m.showCatalog(ev.UserID, s, false, reply)
	}
}

func (m *Machine) showCatalog(userID int64, s MaterialSelection, edit bool, reply func(Reply)) {
	m.store.SetSession(userID, s)
	reply(Reply{Text: chooseMaterialText, Inline: materialKeyboard(m.catalog, m.advisor.Enabled()), Edit: edit})
}

func (m *Machine) askTask(userID int64, s MaterialSelection, edit bool, reply func(Reply)) {
	if !m.advisor.Enabled() {
		m.store.SetSession(userID, Idle{})
		reply(Reply{Text: advisorOffText, Edit: edit})
		return
	}
	m.store.SetSession(userID, s)
	reply(Reply{Text: askTaskText, Edit: edit})
}

func (m *Machine) consult(ctx context.Context, ev Event, reply func(Reply)) {
	reply(Reply{Text: analyzingText})

	rec := m.advisor.Recommend(ctx, ev.Payload)
	entry, ok := m.catalog.Lookup(rec.MaterialKey)
	if !ok {
		// The advisor guarantees catalog keys; a mismatch means mixed catalogs.
		m.logger.Error("advisor returned unknown material", "material", rec.MaterialKey)
		m.showCatalog(ev.UserID, MaterialSelection{}, false, reply)
		return
	}

	m.store.SetSession(ev.UserID, MaterialSelection{Advice: &rec})
	reply(Reply{Text: recommendationText(entry, rec), Inline: recommendationKeyboard(rec.MaterialKey)})
}

func (m *Machine) selectMaterial(userID int64, key, advice string, reply func(Reply)) {
	entry, ok := m.catalog.Lookup(key)
	if !ok {
		m.store.SetSession(userID, MaterialSelection{})
		reply(Reply{Text: unknownMaterialText, Inline: materialKeyboard(m.catalog, m.advisor.Enabled()), Edit: true})
		return
	}
	m.store.SetSession(userID, QuantityInput{Material: entry, Advice: advice})
	reply(Reply{Text: selectedText(entry), Edit: true})
}

func (m *Machine) quantityInput(ev Event, s QuantityInput, reply func(Reply)) {
	if ev.Kind != EventText {
		reply(Reply{Text: quantityPromptText(s.Material)})
		return
	}

	q, err := validate.Quantity(ev.Payload)
	if err != nil {
		reply(Reply{Text: quantityRejection(err)})
		return
	}

	next := AddressInput{
		QuantityInput: s,
		Quantity:      q,
		Price:         q.Mul(s.Material.UnitPrice),
	}
	m.store.SetSession(ev.UserID, next)
	reply(Reply{Text: quantityAcceptedText(next)})
}

func quantityRejection(err error) string {
	switch {
	case errors.Is(err, validate.ErrNonPositive):
		return quantityNonPositiveText
	case errors.Is(err, validate.ErrTooLarge):
		return quantityTooLargeText
	default:
		return quantityNotANumberText
	}
}

func (m *Machine) addressInput(ev Event, s AddressInput, reply func(Reply)) {
	if ev.Kind != EventText {
		reply(Reply{Text: "📍 Укажите адрес доставки:"})
		return
	}

	address, err := validate.Address(ev.Payload)
	if err != nil {
		reply(Reply{Text: addressTooShortText})
		return
	}

	m.store.SetSession(ev.UserID, ContactInput{AddressInput: s, Address: address})
	reply(Reply{Text: addressAcceptedText(address)})
}

func (m *Machine) contactInput(ev Event, s ContactInput, reply func(Reply)) {
	if ev.Kind != EventText {
		reply(Reply{Text: "📞 Укажите ваш номер телефона для связи:"})
		return
	}

	phone, err := validate.Phone(ev.Payload)
	if err != nil {
		reply(Reply{Text: phoneInvalidText})
		return
	}

	order := models.Order{
		UserID:           ev.UserID,
		DisplayName:      ev.DisplayName,
		Material:         s.Material.Key,
		Quantity:         s.Quantity,
		Unit:             s.Material.Unit,
		Address:          s.Address,
		Phone:            phone,
		EstimatedPrice:   s.Price,
		AIRecommendation: s.Advice,
		CreatedAt:        m.now(),
	}
	m.store.PutOrder(ev.UserID, order)
	m.store.SetSession(ev.UserID, Confirmation{Order: order})
	reply(Reply{Text: summaryText(m.catalog, order), Inline: confirmationKeyboard()})
}

func (m *Machine) confirmation(ev Event, s Confirmation, reply func(Reply)) {
	switch {
	case ev.Kind == EventButton && ev.Payload == DataConfirmOrder:
		order, ok := m.store.TakeOrder(ev.UserID)
		m.store.Reset(ev.UserID)
		if !ok {
			reply(Reply{Text: staleOrderText, Edit: true})
			return
		}

		now := m.now()
		order.ConfirmedAt = now
		order.Number = dispatch.OrderNumber(order.UserID, now)
		m.dispatcher.Dispatch(order)

		m.logger.Info("order confirmed", "user_id", ev.UserID, "order", order.Number, "material", order.Material)
		reply(Reply{Text: acceptedText(order.Number), Edit: true})

	case ev.Kind == EventButton && ev.Payload == DataCancelOrder:
		m.store.Reset(ev.UserID)
		m.logger.Info("order cancelled", "user_id", ev.UserID)
		reply(Reply{Text: cancelledText, Edit: true})

	default:
		reply(Reply{Text: summaryText(m.catalog, s.Order), Inline: confirmationKeyboard()})
	}
}
