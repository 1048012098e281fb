package seeders

import (
	"context"
	"errors"
	"fmt"
	"log"

	"workshop-system/internal/authz"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var demoUsers = []struct {
	Fio      string
	Login    string
	Phone    string
	Password string
	Role     authz.Role
}{
	{Fio: "Администратор", Login: "admin", Phone: "+79990000001", Password: "admin", Role: authz.RoleAdmin},
	{Fio: "Иванов Иван (менеджер)", Login: "manager", Phone: "+79990000002", Password: "manager", Role: authz.RoleManager},
	{Fio: "Петров Пётр (мастер)", Login: "master", Phone: "+79990000003", Password: "master", Role: authz.RoleMaster},
	{Fio: "Сидоров Семён (исполнитель)", Login: "executor1", Phone: "+79990000004", Password: "executor", Role: authz.RoleExecutor},
	{Fio: "Кузнецов Константин (исполнитель)", Login: "executor2", Phone: "+79990000005", Password: "executor", Role: authz.RoleExecutor},
}

// SeedUsers создаёт демо-пользователей по одному на роль. Повторный запуск
// пропускает уже существующие логины.
func SeedUsers(db *pgxpool.Pool) {
	log.Println("🌱 Создание демо-пользователей...")
	ctx := context.Background()

	for _, u := range demoUsers {
		if err := seedUser(ctx, db, u.Fio, u.Login, u.Phone, u.Password, u.Role); err != nil {
			log.Fatalf("❌ Ошибка создания пользователя %q: %v", u.Login, err)
		}
	}

	log.Println("✅ Демо-пользователи созданы.")
}

func seedUser(ctx context.Context, db *pgxpool.Pool, fio, login, phone, password string, role authz.Role) error {
	var existingID uint64
	err := db.QueryRow(ctx, "SELECT id FROM users WHERE login = $1", login).Scan(&existingID)
	if err == nil {
		log.Printf("  - Пользователь %q уже существует. Пропускаем.", login)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("ошибка проверки существования пользователя: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	_, err = db.Exec(ctx, `
		INSERT INTO users (fio, login, phone, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)`,
		fio, login, phone, string(hash), string(role),
	)
	if err != nil {
		return fmt.Errorf("ошибка вставки пользователя: %w", err)
	}
	log.Printf("  - Пользователь %q (%s) создан.", login, role)
	return nil
}
