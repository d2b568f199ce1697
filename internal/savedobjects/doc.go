// Package savedobjects предоставляет клиентов хранилища saved objects.
//
// Два вида клиентов:
//   - EncryptedClient — работает от имени внутреннего пользователя системы,
//     умеет расшифровывать секретные атрибуты. Namespace передаётся явно.
//   - ScopedClient — привязан к запросу (Request). Namespace определяется
//     по base path запроса, секреты не расшифровывает.
//
// Request — минимальная capability, которая нужна клиентам от запроса:
// заголовок авторизации и base path. Полноценный HTTP-запрос не требуется,
// поэтому отложенные задачи передают сюда синтетический запрос.
package savedobjects
