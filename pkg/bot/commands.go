package bot

// Replies for the built-in slash commands.
const (
	StartReply = `Здравствуйте! Я помощник по продукту.

Могу рассказать о тарифах и возможностях или помочь с технической проблемой — просто напишите свой вопрос.

Команды: /help — справка, /clear — очистить историю диалога.`

	HelpReply = `Что я умею:

• отвечать на вопросы о тарифах и ценах;
• помогать с настройкой и техническими проблемами.

Команды:
/start — приветствие
/help — эта справка
/clear — очистить историю диалога`

	ClearReply = "История диалога очищена."
)
