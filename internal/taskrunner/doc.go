// Package taskrunner выполняет отложенные action tasks.
//
// # Обзор
//
// Планировщик хранит только ссылку на task (domain.TaskReference): space и ID
// зашифрованной записи action_task_params. Пакет превращает такую ссылку
// в выполнение action и сводит результат к одному из трёх исходов:
// успех, ошибка с повтором, окончательная ошибка.
//
// # Ключевые компоненты
//
// ## Factory
//
// Создаётся один раз на процесс с ActionExecutor'ом и один раз
// инициализируется RunnerContext'ом (логгер, клиенты хранилища,
// отображения space → namespace и space → base path):
//
//	factory := taskrunner.NewFactory(executor)
//	if err := factory.Initialize(taskrunner.RunnerContext{...}); err != nil {
//	    log.Fatal(err)
//	}
//
//	runner, err := factory.Create(ref)
//	if err != nil {
//	    return err
//	}
//	return runner.Run(ctx)
//
// Повторный Initialize возвращает ErrAlreadyInitialized,
// Create до Initialize — ErrNotInitialized. Create не делает I/O.
//
// ## Runner
//
// Одноразовый исполнитель одного task. Run проходит шаги:
//
//  1. Decrypting — чтение action_task_params от имени внутреннего пользователя
//  2. Authorizing — SyntheticRequest с заголовком "ApiKey <key>"
//  3. Executing — ActionExecutor.Execute
//  4. Classifying — Classify(result) → Success / Retryable / Fatal
//  5. CleaningUp — удаление action_task_params через scoped client
//
// Ошибка шага 1 возвращается как есть, без выполнения и без очистки.
// Очистка выполняется после любого исхода шагов 3–4, если шаг 1 прошёл;
// её ошибки логируются и не влияют на результат Run.
//
// # Ошибки
//
// Ошибка выполнения action возвращается как *ExecutorError с флагом
// Retryable. Отсутствие сигнала о повторе от executor'а означает
// "не повторять".
package taskrunner
