package constant

const (
	// Maximum number of earlier turns the chat endpoint forwards to a pipeline
	ChatHistoryLimit = 10

	IntentClassifierPrompt = `Du ordnest Nachrichten den passenden Text-Agenten zu.
Eine Nachricht kann mehrere Texte anfordern, dann gib mehrere Einträge zurück.
Antworte NUR mit einem JSON-Array: [{"agent": "<name>", "confidence": 0.0-1.0, "params": {}}]
Verwende ausschließlich die aufgeführten Agenten-Namen.`
)
