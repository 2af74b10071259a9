package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"roleplay_bot/internal/domain"
)

// ключи сообщений
const (
	CharacterLevelUp  = "characterLevelUp"
	Roll              = "roll"
	FieldMoney        = "money"
	FieldName         = "name"
	FieldAge          = "age"
	FieldRace         = "race"
	FieldGender       = "gender"
	FieldPronouns     = "pronouns"
	FieldTitle        = "title"
	FieldCreatedAt    = "createdAt"
	FieldLastPostAt   = "lastPostAt"
	FieldLevel        = "level"
	FieldExp          = "exp"
	FieldLeveling     = "leveling"
	FieldAppearance   = "appearance"
	FieldBackstory    = "backstory"
	FieldPersonality  = "personality"
	NotDefined        = "notDefined"
	MoneyAdded        = "moneyAdded"
	MoneyRemoved      = "moneyRemoved"
	MoneyGiven        = "moneyGiven"
	MoneyNotGiven     = "moneyNotGiven"
	InvalidAmount     = "invalidAmount"
	UserNoCharacter   = "userNoCharacter"
	NoPermission      = "noPermission"
	PluginEnabled     = "pluginEnabled"
	PluginDisabled    = "pluginDisabled"
	PluginUnknown     = "pluginUnknown"
	PluginList        = "pluginList"
	CharacterCreated  = "characterCreated"
	CharacterDeleted  = "characterDeleted"
	CharacterChosen   = "characterChosen"
	CharacterNotFound = "characterNotFound"
	CharacterUsage    = "characterUsage"
	EditPrompt        = "editPrompt"
	EditCancelled     = "editCancelled"
	EditDone          = "editDone"
	EditNotAllowed    = "editNotAllowed"
	AlreadyEditing    = "alreadyEditing"
	TopTitle          = "topTitle"
	TopEmpty          = "topEmpty"
	LanguageChanged   = "languageChanged"
	LanguageUnknown   = "languageUnknown"
	CharacterList     = "characterList"
	CharacterUpdated  = "characterUpdated"
	ProfileUsage      = "profileUsage"
	CurrentCleared    = "currentCleared"
	NoCurrent         = "noCurrent"
	UnknownCommand    = "unknownCommand"
	Help              = "help"
	InternalError     = "internalError"
)

var supported = []language.Tag{
	language.AmericanEnglish,
	language.BrazilianPortuguese,
}

var (
	matcher = language.NewMatcher(supported)
	cat     = catalog.NewBuilder(catalog.Fallback(language.AmericanEnglish))
)

var messages = map[language.Tag]map[string]string{
	language.AmericanEnglish: {
		CharacterLevelUp:  "🎉 %s reached level %d!",
		Roll:              "🎲 %s rolled %d ⟶ %s",
		FieldMoney:        "💰 Money",
		FieldName:         "Name",
		FieldAge:          "Age",
		FieldRace:         "Race",
		FieldGender:       "Gender",
		FieldPronouns:     "Pronouns",
		FieldTitle:        "Title",
		FieldCreatedAt:    "Created at",
		FieldLastPostAt:   "Last post at",
		FieldLevel:        "Level",
		FieldExp:          "Experience",
		FieldLeveling:     "Leveling",
		FieldAppearance:   "Appearance",
		FieldBackstory:    "Backstory",
		FieldPersonality:  "Personality",
		NotDefined:        "Not defined",
		MoneyAdded:        "Added %d to %s.",
		MoneyRemoved:      "Removed %d from %s.",
		MoneyGiven:        "%s gave %d to %s.",
		MoneyNotGiven:     "The transfer did not happen: check your balance and your current character.",
		InvalidAmount:     "The amount must be a positive number.",
		UserNoCharacter:   "That user has no current character.",
		NoPermission:      "You are not allowed to do that.",
		PluginEnabled:     "Plugin %s enabled.",
		PluginDisabled:    "Plugin %s disabled.",
		PluginUnknown:     "Unknown plugin %s.",
		PluginList:        "Plugins on this server:",
		CharacterCreated:  "Character %s created (id %d).",
		CharacterDeleted:  "Character %s deleted.",
		CharacterChosen:   "You are now playing %s.",
		CharacterNotFound: "Character not found.",
		CharacterUsage:    "Usage: /create Name | https://image.url",
		EditPrompt:        "Send the new text for your post.",
		EditCancelled:     "Edit cancelled.",
		EditDone:          "Post updated.",
		EditNotAllowed:    "Reply /edit to one of your own posts.",
		AlreadyEditing:    "You are already editing a post.",
		TopTitle:          "🏆 Top characters",
		TopEmpty:          "Nobody has leveled up yet.",
		LanguageChanged:   "Language set to %s.",
		LanguageUnknown:   "Supported languages: en-US, pt-BR.",
		CharacterList:     "Your characters:",
		CharacterUpdated:  "Character %s updated.",
		ProfileUsage:      "Usage: /set id field=value. Fields: %s",
		CurrentCleared:    "You stopped playing %s.",
		NoCurrent:         "You are not playing any character.",
		UnknownCommand:    "Unknown command. Use /help.",
		Help:              "/create Name | image url - new character\n/choose id - play as a character\n/characters - your characters\n/profile [id] - character profile\n/delete id - delete a character\n/set id field=value - edit a character profile\n/unset - stop playing your current character\n/top - top characters\n/plugins - plugins on this chat\n/toggleplugin name - enable or disable a plugin\n/language en-US|pt-BR - bot language\n/edit - reply to your post to edit it",
		InternalError:     "Something went wrong, try again later.",
	},
	language.BrazilianPortuguese: {
		CharacterLevelUp:  "🎉 %s chegou ao nível %d!",
		Roll:              "🎲 %s rolou %d ⟶ %s",
		FieldMoney:        "💰 Dinheiro",
		FieldName:         "Nome",
		FieldAge:          "Idade",
		FieldRace:         "Raça",
		FieldGender:       "Gênero",
		FieldPronouns:     "Pronomes",
		FieldTitle:        "Título",
		FieldCreatedAt:    "Criado em",
		FieldLastPostAt:   "Último post em",
		FieldLevel:        "Nível",
		FieldExp:          "Experiência",
		FieldLeveling:     "Progresso",
		FieldAppearance:   "Aparência",
		FieldBackstory:    "História",
		FieldPersonality:  "Personalidade",
		NotDefined:        "Não definido",
		MoneyAdded:        "Adicionado %d para %s.",
		MoneyRemoved:      "Removido %d de %s.",
		MoneyGiven:        "%s deu %d para %s.",
		MoneyNotGiven:     "A transferência não aconteceu: confira seu saldo e seu personagem atual.",
		InvalidAmount:     "A quantidade precisa ser um número positivo.",
		UserNoCharacter:   "Esse usuário não tem personagem atual.",
		NoPermission:      "Você não tem permissão para isso.",
		PluginEnabled:     "Plugin %s ativado.",
		PluginDisabled:    "Plugin %s desativado.",
		PluginUnknown:     "Plugin desconhecido %s.",
		PluginList:        "Plugins deste servidor:",
		CharacterCreated:  "Personagem %s criado (id %d).",
		CharacterDeleted:  "Personagem %s apagado.",
		CharacterChosen:   "Agora você está jogando com %s.",
		CharacterNotFound: "Personagem não encontrado.",
		CharacterUsage:    "Uso: /create Nome | https://url.da.imagem",
		EditPrompt:        "Envie o novo texto do seu post.",
		EditCancelled:     "Edição cancelada.",
		EditDone:          "Post atualizado.",
		EditNotAllowed:    "Responda /edit a um post seu.",
		AlreadyEditing:    "Você já está editando um post.",
		TopTitle:          "🏆 Melhores personagens",
		TopEmpty:          "Ninguém subiu de nível ainda.",
		LanguageChanged:   "Idioma definido para %s.",
		LanguageUnknown:   "Idiomas disponíveis: en-US, pt-BR.",
		CharacterList:     "Seus personagens:",
		CharacterUpdated:  "Personagem %s atualizado.",
		ProfileUsage:      "Uso: /set id campo=valor. Campos: %s",
		CurrentCleared:    "Você parou de jogar com %s.",
		NoCurrent:         "Você não está jogando com nenhum personagem.",
		UnknownCommand:    "Comando desconhecido. Use /help.",
		Help:              "/create Nome | url da imagem - novo personagem\n/choose id - jogar com um personagem\n/characters - seus personagens\n/profile [id] - perfil do personagem\n/delete id - apagar personagem\n/set id campo=valor - editar o perfil do personagem\n/unset - parar de jogar com o personagem atual\n/top - melhores personagens\n/plugins - plugins deste chat\n/toggleplugin nome - ativar ou desativar plugin\n/language en-US|pt-BR - idioma do bot\n/edit - responda ao seu post para editar",
		InternalError:     "Algo deu errado, tente novamente mais tarde.",
	},
}

func init() {
	for tag, msgs := range messages {
		for key, msg := range msgs {
			if err := cat.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
}

// Normalize приводит любой тег языка к поддерживаемому ("en-US" или "pt-BR")
func Normalize(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return domain.LanguageEnglish
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return domain.LanguageEnglish
	}
	return supported[idx].String()
}

// Printer для языка пользователя
func Printer(lang string) *message.Printer {
	tag := language.MustParse(Normalize(lang))
	return message.NewPrinter(tag, message.Catalog(cat))
}

// T переводит ключ с аргументами
func T(lang, key string, args ...any) string {
	return Printer(lang).Sprintf(key, args...)
}

// Supported true, если язык сводится к одному из поддерживаемых
func Supported(lang string) bool {
	tag, err := language.Parse(lang)
	if err != nil {
		return false
	}
	_, _, conf := matcher.Match(tag)
	return conf != language.No
}
