package conversation

const (
	OpeningMessage = "Bienvenido/a. Voy a hacerte algunas preguntas para entender mejor tu situación. " +
		"Tus respuestas son confidenciales y me ayudarán a determinar el tipo de apoyo que podrías necesitar. " +
		"Por favor, responde con la mayor sinceridad posible. Si en algún momento deseas terminar, " +
		"simplemente escribe 'salir'. Cuando estés listo/a, escribe cualquier mensaje para comenzar."

	ClosingMessage = "Gracias por compartir tu situación. He completado la evaluación preliminar; " +
		"a continuación encontrarás el resumen y las recomendaciones."

	FarewellMessage = "Gracias por tu tiempo. La conversación ha terminado."

	StorageWarning = "No se pudo guardar la conversación de forma permanente. " +
		"El análisis se muestra, pero no estará disponible en el historial."
)

// Rejection messages are returned verbatim to the user.
const (
	MsgInactive = "La conversación no está activa. Inicia una nueva conversación."
	MsgEmpty    = "El mensaje no puede estar vacío"
	MsgTooLong  = "El mensaje excede el límite de caracteres permitido"
	MsgInvalid  = "El mensaje contiene caracteres inválidos"
)

var exitWords = map[string]bool{
	"salir":    true,
	"exit":     true,
	"quit":     true,
	"terminar": true,
}
