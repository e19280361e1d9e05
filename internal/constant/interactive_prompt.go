package constant

const (
	// Search planning. Args: thema, details, requestType
	SearchPlannerPrompt = `Du planst eine Web-Recherche für einen politischen Text.

Thema: %s
Details: %s
Textart: %s

Erstelle bis zu vier Suchanfragen mit unterschiedlichem Zweck. Erlaubte Zwecke:
- facts: Zahlen, Daten, Fakten
- party_position: Positionen und Beschlüsse von BÜNDNIS 90/DIE GRÜNEN
- legal: Rechtslage, Zuständigkeiten
- news: aktuelle Berichterstattung
- examples: gelungene Beispiele aus anderen Kommunen

Antworte NUR mit einem JSON-Array: [{"purpose": "facts", "query": "..."}]`

	// Crawl selection. Args: thema, max urls, numbered candidate list
	CrawlSelectionPrompt = `Für einen Text zum Thema "%s" sollen höchstens %d Webseiten vollständig gelesen werden.

Kandidaten:
%s

Wähle die Seiten mit dem größten Informationsgehalt. Antworte NUR mit JSON:
{"selected": [{"url": "...", "reason": "..."}], "rationale": "..."}`

	// Question generation. Args: textart, thema, details, search context, max questions
	QuestionGenerationPrompt = `Eine Person möchte folgenden Text erstellen lassen.

Textart: %s
Thema: %s
Details: %s

Recherche:
%s

Entscheide, ob Rückfragen nötig sind, um einen guten Text zu schreiben. Frage nur nach
Informationen, die weder in den Details noch in der Recherche stehen. Wenn Rückfragen nötig
sind, formuliere höchstens %d kurze Fragen mit je zwei bis vier Antwortoptionen und je einem
passenden Emoji pro Option.

Nutze das Werkzeug ask_clarifying_questions oder antworte NUR mit JSON:
{"needsClarification": true, "reason": "...", "questions": [{"id": "q1", "text": "...", "type": "audience|tone|scope|facts|general", "options": ["..."], "optionEmojis": ["..."], "allowCustom": true, "allowMultiSelect": false, "placeholder": "..."}]}`

	// Answer summary. Args: thema, transcript
	AnswerSummaryPrompt = `Fasse die folgenden Antworten auf Rückfragen zum Thema "%s" in einem zusammenhängenden
Absatz zusammen. Gib nur Informationen wieder, die in den Antworten stehen.

%s`
)
