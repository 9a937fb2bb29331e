package intake

type EventKind int

const (
	EventStart EventKind = iota
	EventText
	EventButton
)

// Button selectors carried by inline keyboards.
const (
	DataMaterialPrefix = "material_"
	DataOrderPrefix    = "order_"
	DataAIHelp         = "ai_help"
	DataContactManager = "contact_manager"
	DataShowMaterials  = "show_materials"
	DataConfirmOrder   = "confirm_order"
	DataCancelOrder    = "cancel_order"
)

// Event is one inbound message or button press. Payload is the message text
// or the button selector.
type Event struct {
	UserID      int64
	ChatID      int64
	DisplayName string
	Kind        EventKind
	Payload     string
}

type Button struct {
	Label string
	Data  string
}

// Reply is an outbound message. Inline buttons and the persistent menu are
// mutually exclusive; Edit replaces the message whose button was pressed.
type Reply struct {
	Text   string
	Inline [][]Button
	Menu   [][]string
	Edit   bool
}
