package stb

// Class names, relative to the definition namespace.
const (
	// ClassTask is a task (taak) of the breakdown.
	ClassTask = "Taak"

	// ClassPhase is a project phase (fase).
	ClassPhase = "Fase"

	// ClassTheme is a theme (thema) grouping tasks within a phase.
	ClassTheme = "Thema"

	// ClassActivity is an activity (activiteit) a task belongs to.
	ClassActivity = "Activiteit"

	// ClassDocument is a document produced by a task.
	ClassDocument = "Document"
)

// Task predicates.
const (
	Code              = "code"
	TaskNumber        = "taaknr"
	TaskDescription   = "taakomschrijving"
	Necessity         = "noodzaak"
	OrderInTheme      = "volgorde_in_thema"
	OrderInCluster    = "volgorde_in_cluster"
	PartOfTaskCluster = "onderdeel_van_taakcluster"
	MTask             = "mtaak"
	Remark            = "opm"
	TaskPhase         = "fase"
	TaskTheme         = "thema"
	TaskActivity      = "activiteit"
	TaskDocument      = "document"
)

// Phase predicates.
const (
	PhaseNumber      = "fasenr"
	PhaseDescription = "faseomschrijving"
)

// Theme predicates.
const (
	ThemeNumber      = "themanr"
	ThemeDescription = "themaomschrijving"
)

// Activity predicates.
const (
	ActivityNumber      = "activiteitnr"
	ActivityOrder       = "activiteitvolgorde"
	ActivityDescription = "tblActiviteiten_omschr"
)

// Document predicates.
const (
	DocumentNumber      = "documentnr"
	DocumentDescription = "documentomschrijving"
	DocumentType        = "documenttype"
	DocumentKind        = "documentsoort"
	DocumentContent     = "documentinhoud"
)

// DescriptionLang is the language tag of the Dutch descriptions.
const DescriptionLang = "nl"

// Necessity codes found in the noodzaak column.
const (
	NecessityRequired = "N"
	NecessityMTask    = "M"
)
