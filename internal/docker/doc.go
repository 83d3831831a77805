// Package docker — адаптер к Docker Engine API.
//
// Пакет описывает возможности клиента, которые нужны dispatch:
//
//	Client          — операции уровня клиента (list, create, prune, pull, run)
//	                  и выдача handle для конкретного ресурса
//	ContainerHandle — операции над одним контейнером
//	VolumeHandle    — операции над одним volume
//	ConfigHandle    — операции над одним swarm config
//
// Adapter реализует их поверх github.com/docker/docker/client.
// Handle — это значение (клиент + идентификатор): получение handle
// не ходит в сеть и ничего не кэширует.
//
// Любая ошибка SDK превращается в *RemoteError с HTTP-статусом ответа
// daemon (WithStatusCapture); без записанного статуса он
// восстанавливается через errdefs.
//
// Клиент только читается и может использоваться конкурентно.
package docker
