package intent

// Agent is a named text-generation capability. Only the constants below are valid.
type Agent string

const (
	AgentUniversal        Agent = "universal"
	AgentAntrag           Agent = "antrag"
	AgentKleineAnfrage    Agent = "kleine_anfrage"
	AgentGrosseAnfrage    Agent = "grosse_anfrage"
	AgentPressemitteilung Agent = "pressemitteilung"
	AgentSocialMedia      Agent = "social_media"
	AgentZitat            Agent = "zitat"
	AgentInfo             Agent = "info"
	AgentDreizeilen       Agent = "dreizeilen"
	AgentHeadline         Agent = "headline"
	AgentRede             Agent = "rede"
	AgentWahlprogramm     Agent = "wahlprogramm"
	AgentLeichteSprache   Agent = "leichte_sprache"
)

// Routes name the downstream pipelines.
const (
	RouteAntragSimple   = "antrag_simple"
	RouteSocial         = "social"
	RouteSharepic       = "sharepic"
	RouteRede           = "rede"
	RouteWahlprogramm   = "wahlprogramm"
	RouteLeichteSprache = "leichte_sprache"
	RouteUniversal      = "universal"
)

// Families group agents a follow-up message may switch between.
const (
	FamilyParliamentary = "parliamentary"
	FamilyPress         = "press"
	FamilySharepic      = "sharepic"
	FamilySpeech        = "speech"
	FamilyProgram       = "program"
	FamilyAccessibility = "accessibility"
	FamilyGeneral       = "general"
)

type AgentSpec struct {
	Agent       Agent
	Route       string
	Params      map[string]interface{}
	Family      string
	Description string
	// Keywords drive the keyword tier. Secondary keywords are only
	// consulted for follow-ups within the same family.
	Keywords  []string
	Secondary []string
}

// registry order is the keyword tie-break: earlier entries shadow later ones.
var registry = []AgentSpec{
	{
		Agent:       AgentKleineAnfrage,
		Route:       RouteAntragSimple,
		Params:      map[string]interface{}{"requestType": "kleine_anfrage"},
		Family:      FamilyParliamentary,
		Description: "Kleine Anfrage an Verwaltung oder Regierung",
		Keywords:    []string{"kleine anfrage", "kleinen anfrage"},
		Secondary:   []string{"kleine", "kurze fragen"},
	},
	{
		Agent:       AgentGrosseAnfrage,
		Route:       RouteAntragSimple,
		Params:      map[string]interface{}{"requestType": "grosse_anfrage"},
		Family:      FamilyParliamentary,
		Description: "Große Anfrage zu einem ganzen Politikfeld",
		Keywords:    []string{"große anfrage", "grosse anfrage", "großen anfrage", "grossen anfrage"},
		Secondary:   []string{"große", "grosse", "ausführlich"},
	},
	{
		Agent:       AgentAntrag,
		Route:       RouteAntragSimple,
		Params:      map[string]interface{}{"requestType": "antrag"},
		Family:      FamilyParliamentary,
		Description: "Antrag für Rat, Kreistag oder Parlament",
		Keywords:    []string{"antrag", "beschlussvorschlag"},
		Secondary:   []string{"beschluss", "vorlage"},
	},
	{
		Agent:       AgentPressemitteilung,
		Route:       RouteSocial,
		Params:      map[string]interface{}{"platforms": []string{"pressemitteilung"}},
		Family:      FamilyPress,
		Description: "Pressemitteilung",
		Keywords:    []string{"pressemitteilung", "pressemeldung", "presseerklärung"},
		Secondary:   []string{"presse", "meldung"},
	},
	{
		Agent:       AgentSocialMedia,
		Route:       RouteSocial,
		Params:      map[string]interface{}{"platforms": []string{"instagram", "facebook"}},
		Family:      FamilyPress,
		Description: "Social-Media-Beitrag für Instagram, Facebook, Mastodon oder X",
		Keywords:    []string{"social media", "instagram", "facebook", "mastodon", "tweet", "insta-post"},
		Secondary:   []string{"post", "beitrag", "hashtags"},
	},
	{
		Agent:       AgentZitat,
		Route:       RouteSharepic,
		Params:      map[string]interface{}{"type": "quote"},
		Family:      FamilySharepic,
		Description: "Zitat-Sharepic mit prägnantem Zitat",
		Keywords:    []string{"zitat", "quote"},
		Secondary:   []string{"spruch", "aussage"},
	},
	{
		Agent:       AgentInfo,
		Route:       RouteSharepic,
		Params:      map[string]interface{}{"type": "info"},
		Family:      FamilySharepic,
		Description: "Info-Sharepic mit Kernaussage und Fakten",
		Keywords:    []string{"info-sharepic", "info sharepic", "infopost", "infografik"},
		Secondary:   []string{"info", "fakten", "zahlen"},
	},
	{
		Agent:       AgentDreizeilen,
		Route:       RouteSharepic,
		Params:      map[string]interface{}{"type": "dreizeilen"},
		Family:      FamilySharepic,
		Description: "Sharepic mit Slogan in drei Zeilen",
		Keywords:    []string{"dreizeiler", "drei zeilen", "3 zeilen", "3-zeiler"},
		Secondary:   []string{"slogan", "zeilen"},
	},
	{
		Agent:       AgentHeadline,
		Route:       RouteSharepic,
		Params:      map[string]interface{}{"type": "headline"},
		Family:      FamilySharepic,
		Description: "Headline-Sharepic",
		Keywords:    []string{"headline"},
		Secondary:   []string{"überschrift", "titel"},
	},
	{
		Agent:       AgentRede,
		Route:       RouteRede,
		Params:      map[string]interface{}{},
		Family:      FamilySpeech,
		Description: "Rede für Ratssitzung, Parteitag oder Kundgebung",
		Keywords:    []string{"eine rede", "rede für", "rede zum", "rede zur", "redebeitrag", "ansprache"},
		Secondary:   []string{"rede", "vortrag"},
	},
	{
		Agent:       AgentWahlprogramm,
		Route:       RouteWahlprogramm,
		Params:      map[string]interface{}{},
		Family:      FamilyProgram,
		Description: "Kapitel für ein Wahlprogramm",
		Keywords:    []string{"wahlprogramm"},
		Secondary:   []string{"kapitel", "programm"},
	},
	{
		Agent:       AgentLeichteSprache,
		Route:       RouteLeichteSprache,
		Params:      map[string]interface{}{},
		Family:      FamilyAccessibility,
		Description: "Übersetzung in Leichte Sprache",
		Keywords:    []string{"leichte sprache", "einfache sprache"},
		Secondary:   []string{"leicht", "einfach"},
	},
	{
		Agent:       AgentUniversal,
		Route:       RouteUniversal,
		Params:      map[string]interface{}{},
		Family:      FamilyGeneral,
		Description: "Beliebiger anderer Text",
	},
}

var byName = func() map[Agent]AgentSpec {
	m := make(map[Agent]AgentSpec, len(registry))
	for _, spec := range registry {
		m[spec.Agent] = spec
	}
	return m
}()

// Lookup returns the registry entry for a raw agent name.
func Lookup(name string) (AgentSpec, bool) {
	spec, ok := byName[Agent(name)]
	return spec, ok
}

// Agents returns the registry in keyword-table order.
func Agents() []AgentSpec {
	out := make([]AgentSpec, len(registry))
	copy(out, registry)
	return out
}

// DefaultParams returns a fresh copy of the agent's default parameters.
func (s AgentSpec) DefaultParams() map[string]interface{} {
	out := make(map[string]interface{}, len(s.Params))
	for k, v := range s.Params {
		out[k] = v
	}
	return out
}
